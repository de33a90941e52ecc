package audio

import "errors"

// Error kinds. Every error returned by this package wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	// ErrConfiguration reports a category, clip or component that was never configured.
	ErrConfiguration = errors.New("audio: configuration error")
	// ErrValidation reports malformed call arguments.
	ErrValidation = errors.New("audio: validation error")
	// ErrBackend reports an operation the playback or mixer backend rejected.
	ErrBackend = errors.New("audio: backend error")
)

// Outcome is the result of one item in a best-effort batch operation.
type Outcome struct {
	Item string
	Err  error
}

// OK reports whether the item succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Failed filters the failed outcomes.
func Failed(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}
