// Package clock holds small time helpers used by the batch package.
package clock

import "time"

// farFuture is effectively "no deadline": thirty years out, matching the batch client's
// convention for callers that pass no timeout.
const farFuture = 30 * 365 * 24 * time.Hour

// DeadlineOrFarFuture turns an optional timeout into an absolute deadline. A zero
// duration means "no timeout", which is represented as a deadline far enough in the
// future that it never fires in practice.
func DeadlineOrFarFuture(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Now().Add(farFuture)
	}
	return time.Now().Add(timeout)
}
