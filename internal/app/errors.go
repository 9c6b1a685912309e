package app

import "errors"

// Error kinds every workflow failure is tagged with. Callers branch with
// errors.Is; the error text names the failing step and the ids involved.
var (
	// ErrNotFound means a referenced entity is absent: a mapping, an
	// ingestion record, a chat, or the blob behind a mapping.
	ErrNotFound = errors.New("not found")
	// ErrInternal covers unexpected store or engine failures.
	ErrInternal = errors.New("internal error")
	// ErrEmptyPDF means the document parsed but contains no extractable
	// text. Unlike ErrInternal this is actionable by the caller.
	ErrEmptyPDF = errors.New("no text in pdf")
)
