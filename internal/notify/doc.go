// Package notify delivers notifications to humans: sales representatives
// receiving handovers and administrators receiving watchdog alerts.
//
// EmailNotifier mails each recipient through a vendor Sender, SlackNotifier
// posts to an incoming webhook, and KafkaPublisher emits the notification as
// an event for downstream consumers. Fanout combines them.
package notify
