// Package worker runs the background maintenance loops.
package worker
