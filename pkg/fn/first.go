package fn

import "errors"

// ErrNoAttempts is returned by FirstOk when called with no attempts.
var ErrNoAttempts = errors.New("fn: no attempts")

// FirstOk runs attempts in order and returns the index and result of the
// first success. Later attempts are not run. If every attempt fails it
// returns -1 and the last failure.
func FirstOk[T any](attempts ...func() Result[T]) (int, Result[T]) {
	last := Err[T](ErrNoAttempts)
	for i, attempt := range attempts {
		r := attempt()
		if r.IsOk() {
			return i, r
		}
		last = r
	}
	return -1, last
}
