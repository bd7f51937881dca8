package park

import "errors"

// ErrMergeSafety aborts a merge whose loser still owns rows after migration.
// The transaction rolls back, both records stay, and the next sweep retries
// from current state. A merge must never discard unmigrated data.
var ErrMergeSafety = errors.New("merge safety violation: loser still owns child rows")

// ErrMalformedRecord marks an upstream record missing required fields. The
// record is skipped; its siblings keep processing.
var ErrMalformedRecord = errors.New("malformed upstream record")
