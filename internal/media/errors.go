package media

import "fmt"

// ProbeError indicates the analysis tool could not extract valid
// metadata from the input. The same input will fail the same way, so
// probe failures are never retried.
type ProbeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("probe %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("probe %s: %s", e.Path, e.Reason)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// TranscodeError indicates the transcoding engine exited abnormally.
// StderrTail carries the last diagnostic lines for the server log; it
// must never be surfaced to a client verbatim.
type TranscodeError struct {
	Path       string
	StderrTail string
	Err        error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode %s: %v", e.Path, e.Err)
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}
