package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Decode failure kinds. Every error returned by Unmarshal and Decode wraps a
// *DecodeError whose Kind is one of these.
var (
	ErrSyntax         = errors.New("syntax error")
	ErrInvalidType    = errors.New("invalid type")
	ErrInvalidValue   = errors.New("invalid value")
	ErrInvalidLength  = errors.New("invalid length")
	ErrUnknownField   = errors.New("unknown field")
	ErrDuplicateField = errors.New("duplicate field")
	ErrMissingField   = errors.New("missing field")
	ErrOverflow       = errors.New("overflow")
)

const (
	fieldSecs  = "secs_since_epoch"
	fieldNanos = "nanos_since_epoch"

	expectStruct = "struct SystemTime"
	expectField  = "`" + fieldSecs + "` or `" + fieldNanos + "`"
)

// DecodeError describes why a record could not be decoded.
type DecodeError struct {
	// Kind is one of the Err* sentinels.
	Kind error

	// Field is the record field being decoded, empty when the failure is
	// not tied to one.
	Field string

	msg string
}

func (e *DecodeError) Error() string {
	return e.msg
}

func (e *DecodeError) Unwrap() error {
	return e.Kind
}

// label is the metrics label of the error kind.
func label(err error) string {
	var de *DecodeError
	if !errors.As(err, &de) {
		return "error"
	}
	return strings.ReplaceAll(de.Kind.Error(), " ", "_")
}

func syntaxError(err error) *DecodeError {
	return &DecodeError{Kind: ErrSyntax, msg: err.Error()}
}

func invalidType(v value, field, expected string) *DecodeError {
	return &DecodeError{
		Kind:  ErrInvalidType,
		Field: field,
		msg:   fmt.Sprintf("invalid type: %s, expected %s", v.describe(), expected),
	}
}

func invalidValue(v value, field, expected string) *DecodeError {
	return &DecodeError{
		Kind:  ErrInvalidValue,
		Field: field,
		msg:   fmt.Sprintf("invalid value: %s, expected %s", v.describe(), expected),
	}
}

func invalidLength(n int, expected string) *DecodeError {
	return &DecodeError{
		Kind: ErrInvalidLength,
		msg:  "invalid length " + strconv.Itoa(n) + ", expected " + expected,
	}
}

func unknownField(name string) *DecodeError {
	return &DecodeError{
		Kind:  ErrUnknownField,
		Field: name,
		msg:   "unknown field `" + name + "`, expected " + expectField,
	}
}

func duplicateField(name string) *DecodeError {
	return &DecodeError{Kind: ErrDuplicateField, Field: name, msg: "duplicate field `" + name + "`"}
}

func missingField(name string) *DecodeError {
	return &DecodeError{Kind: ErrMissingField, Field: name, msg: "missing field `" + name + "`"}
}

func overflow(msg string) *DecodeError {
	return &DecodeError{Kind: ErrOverflow, msg: msg}
}
