// Package errcode tags errors with numeric stage codes so a failure can
// be traced through nested pipeline stages without a stack trace.
package errcode

import "github.com/pkg/errors"

// Wrap annotates err with a stage-local code. Codes compose as the error
// propagates, so "code -2: code -5: ..." identifies the failing call path.
func Wrap(code int, err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "code %d", code)
}

// New creates a coded error with the given message.
func New(code int, msg string) error {
	return errors.Errorf("code %d: %s", code, msg)
}
