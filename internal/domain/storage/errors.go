package storage

import "errors"

// ErrTransient marks storage failures that are safe to retry, such as
// serialization conflicts, deadlocks, and lock timeouts. Repositories
// attach it with errors.Mark so callers can test with errors.Is.
var ErrTransient = errors.New("transient storage error")
