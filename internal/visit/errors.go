package visit

import "errors"

var (
	// ErrNotFound is returned when a visit id references no stored record
	ErrNotFound = errors.New("visit not found")

	// ErrMissingVisitID is returned when a request omits the visit id
	ErrMissingVisitID = errors.New("visit_id is required")

	// ErrMissingQA is returned when an intake submission has no question/answer pairs
	ErrMissingQA = errors.New("qa is required")
)
