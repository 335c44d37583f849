package retry

import "errors"

type abortError struct {
	err error
}

func (e *abortError) Error() string {
	return e.err.Error()
}

func (e *abortError) Unwrap() error {
	return e.err
}

// Abort marks err as permanent: Do returns it unwrapped without retrying.
func Abort(err error) error {
	if err == nil {
		return nil
	}

	return &abortError{err: err}
}

func aborted(err error) (error, bool) {
	var abort *abortError
	if errors.As(err, &abort) {
		return abort.err, true
	}

	return nil, false
}
