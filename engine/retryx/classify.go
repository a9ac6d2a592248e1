// Package retryx classifies node-executor errors as transient or permanent
// and computes the exponential backoff between retry attempts.
package retryx

import "regexp"

// transientPatterns is the fixed set of transient signals: timeout
// phrasing, common POSIX socket error codes, HTTP 5xx, and the two
// browser-automation crash phrasings Playwright/Lighthouse subprocesses
// produce.
var transientPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)timeout`),
	regexp.MustCompile(`ETIMEDOUT`),
	regexp.MustCompile(`ECONNREFUSED`),
	regexp.MustCompile(`ECONNRESET`),
	regexp.MustCompile(`\b5\d\d\b`),
	regexp.MustCompile(`(?i)browser.*crash`),
	regexp.MustCompile(`Target closed`),
}

// IsTransient reports whether an executor error's message matches one of
// the transient signals above. Errors that don't match are permanent and
// never retried regardless of remaining attempts.
func IsTransient(message string) bool {
	for _, p := range transientPatterns {
		if p.MatchString(message) {
			return true
		}
	}
	return false
}
