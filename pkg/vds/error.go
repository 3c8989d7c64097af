package vds

import "fmt"

// Error is returned for any failure talking to the data service: transport
// errors carry Err, non-2xx answers carry HttpCode and the response body.
type Error struct {
	HttpCode int
	Body     string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.HttpCode != 0 {
			return fmt.Sprintf("data service error (%d): %v", e.HttpCode, e.Err)
		}
		return fmt.Sprintf("data service unreachable: %v", e.Err)
	}
	return fmt.Sprintf("data service error (%d): %s", e.HttpCode, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}
