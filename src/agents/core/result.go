package core

// Result is the outcome of one query: either reply text or a failure.
type Result struct {
	Text string
	Err  error
}

func Ok(text string) Result { return Result{Text: text} }

// Fail wraps err so that errors.Is(r.Err, ErrRemoteOperation) holds while the
// original text is kept.
func Fail(err error) Result {
	if err == nil {
		return Result{}
	}
	return Result{Err: &remoteError{err: err}}
}

func (r Result) OK() bool { return r.Err == nil }

// Message is the caller-facing failure text.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return "Error processing query: " + r.Err.Error()
}

type remoteError struct {
	err error
}

func (e *remoteError) Error() string { return e.err.Error() }

func (e *remoteError) Unwrap() error { return e.err }

func (e *remoteError) Is(target error) bool { return target == ErrRemoteOperation }
