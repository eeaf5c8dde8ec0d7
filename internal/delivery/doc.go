// Package delivery holds the vendor senders: AWS SES for email and a log
// sender for channels without a vendor in development.
package delivery
