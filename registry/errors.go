package registry

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

/*
NoCodecError is the single error kind raised by registry lookups: the
requested type, class name, or tag has no codec under this registry's
configuration. It is definitionally a missing-configuration failure, never a
transient one, so callers should not retry -- an identical lookup against the
same registry fails identically.

Construction-time failures (Builder.Build returning an error) are ordinary
errors, not NoCodecError, and should abort startup rather than surface as
request-level errors.
*/
type NoCodecError struct {
	// Message is the human-readable explanation.
	Message string

	// TypeName is the canonical name of the offending type, when known.
	TypeName string

	// Tag is the offending tag for tag-based lookups, otherwise 0.
	Tag int

	// sourceErr is the underlying cause, such as a dynamic codec
	// construction failure.
	sourceErr error

	// frame records where the error was raised.
	frame xerrors.Frame
}

func newNoCodec(message string, typeName string, tag int, source error) *NoCodecError {
	return &NoCodecError{
		Message:   message,
		TypeName:  typeName,
		Tag:       tag,
		sourceErr: source,
		frame:     xerrors.Caller(1),
	}
}

func (noCodec *NoCodecError) Error() string {
	message := noCodec.Message
	if noCodec.Tag != 0 && !strings.Contains(message, strconv.Itoa(noCodec.Tag)) {
		message += " (tag " + strconv.Itoa(noCodec.Tag) + ")"
	}
	if noCodec.sourceErr != nil {
		message += ": " + noCodec.sourceErr.Error()
	}
	return message
}

// Unwrap exposes the underlying cause to errors.Is / errors.As chains.
func (noCodec *NoCodecError) Unwrap() error {
	return noCodec.sourceErr
}

func (noCodec *NoCodecError) Format(state fmt.State, verb rune) {
	xerrors.FormatError(noCodec, state, verb)
}

// FormatError prints the message and the raising frame when formatted with
// %+v, following the xerrors formatter contract.
func (noCodec *NoCodecError) FormatError(printer xerrors.Printer) error {
	printer.Print(noCodec.Message)
	if printer.Detail() {
		noCodec.frame.Format(printer)
	}
	return noCodec.sourceErr
}

// IsNoCodec reports whether err is (or wraps) a NoCodecError.
func IsNoCodec(err error) bool {
	var noCodec *NoCodecError
	return xerrors.As(err, &noCodec)
}
