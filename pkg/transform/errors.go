package transform

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord marks an upstream entry that could not be normalized.
var ErrMalformedRecord = errors.New("transform: malformed record")

// MalformedRecordError describes one skipped entry.
type MalformedRecordError struct {
	Index   int
	AssetID string
	Field   string
	Reason  string
	Err     error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("transform: malformed record %d (%q)", e.Index, e.AssetID)
	if e.Field != "" {
		msg += " field " + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}
