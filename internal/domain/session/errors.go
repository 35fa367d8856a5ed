package session

import "errors"

// ErrPersistence wraps a failure to store a submitted score.
var ErrPersistence = errors.New("score persistence failed")
