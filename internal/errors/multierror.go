package errors

import "strings"

type MultiError struct {
	msg    string
	Errors []error
}

func NewMultiError(msg string) *MultiError {
	return &MultiError{msg: msg}
}

func (m *MultiError) Append(err error) {
	if err == nil {
		return
	}
	if me, ok := err.(*MultiError); ok { //nolint: errorlint
		m.Errors = append(m.Errors, me.Errors...)
		return
	}
	m.Errors = append(m.Errors, err)
}

func (m *MultiError) Error() string {
	var sb strings.Builder
	sb.WriteString(m.msg + ":")
	for _, e := range m.Errors {
		sb.WriteString("\n " + e.Error())
	}
	return sb.String()
}

// ToErr collapses the multi error, nil when no error was appended.
func (m *MultiError) ToErr() error {
	if m == nil || len(m.Errors) == 0 {
		return nil
	}
	return m
}

func MultiToError(err error) error {
	if me, ok := err.(*MultiError); ok { //nolint: errorlint
		return me.ToErr()
	}
	return err
}

func Append(err error, errs ...error) error {
	me, ok := err.(*MultiError) //nolint: errorlint
	if !ok {
		me = NewMultiError("multiple errors")
		me.Append(err)
	}
	for _, e := range errs {
		me.Append(e)
	}
	return me.ToErr()
}
