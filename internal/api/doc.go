// Package api exposes the campaign executor, handover service and outbound
// email watchdog over HTTP with a chi router.
package api
