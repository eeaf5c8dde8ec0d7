// Package watchdog gatekeeps outbound email.
//
// Every email the platform sends is checked against a priority-ordered set
// of block rules. A rule can block the email, quarantine it, hold it for
// approval, or alert administrators. Internal errors fail closed: an email
// that could not be validated is reported as blocked.
//
// Held emails live in memory only and are purged after a retention window by
// the worker sweeper.
package watchdog
