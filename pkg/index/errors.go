package index

import "errors"

// ErrDuplicate is returned by HashIndex.Insert when one of the document's
// index keys already maps to a different key.
var ErrDuplicate = errors.New("index: duplicate key")
