// Package errors extends the standard library errors with slog annotations and source locations.
//
// Use [Wrap] at call sites that add context so that [SlogError] can report where the failure
// originated together with the structured attributes collected along the way.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

type annotatedError struct {
	msg   string
	err   error
	attrs []slog.Attr
	// source is the file:line where the error was annotated.
	source string
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// NewSentinel creates an error without stack information, suitable for package level sentinels.
func NewSentinel(msg string) error {
	return errors.New(msg) //nolint:err113 // sentinel constructor.
}

// New creates an error that records the caller's source location.
func New(msg string) error {
	return &annotatedError{msg: msg, err: nil, attrs: nil, source: callerSource(2)} //nolint:mnd // skip New.
}

// Wrap annotates err with a message and slog attributes. Wrapping a nil error returns nil.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &annotatedError{msg: msg, err: err, attrs: attrs, source: callerSource(2)} //nolint:mnd // skip Wrap.
}

// DecoratePanic converts a recovered panic value into an error pointing at the panic site.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	ae := &annotatedError{msg: "panic", err: nil, attrs: nil, source: panicSource()}
	if err, ok := excp.(error); ok {
		ae.err = err
	} else {
		ae.msg = fmt.Sprintf("panic: %v", excp)
	}
	return ae
}

// SlogError returns a slog attribute describing err, its annotations and the source location of
// the innermost annotation.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}

	var (
		attrs  []slog.Attr
		source string
	)
	for e := err; e != nil; e = errors.Unwrap(e) {
		var ae *annotatedError
		if ae, _ = e.(*annotatedError); ae == nil {
			continue
		}
		attrs = append(attrs, ae.attrs...)
		if ae.source != "" {
			source = ae.source
		}
	}

	groupAttrs := []slog.Attr{slog.String("message", err.Error())}
	if len(attrs) > 0 {
		groupAttrs = append(groupAttrs, slog.Attr{Key: "annotations", Value: slog.GroupValue(attrs...)})
	}
	if source != "" {
		groupAttrs = append(groupAttrs, slog.String("source", source))
	}
	return slog.Attr{Key: "error", Value: slog.GroupValue(groupAttrs...)}
}

func callerSource(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// panicSource finds the frame that called panic. Falls back to the caller of DecoratePanic.
func panicSource() string {
	const depth = 32
	pcs := make([]uintptr, depth)
	n := runtime.Callers(3, pcs) //nolint:mnd // skip panicSource and DecoratePanic.
	frames := runtime.CallersFrames(pcs[:n])
	fallback := ""
	afterPanic := false
	for {
		frame, more := frames.Next()
		if fallback == "" {
			fallback = fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
		if afterPanic && !strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
		if frame.Function == "runtime.gopanic" {
			afterPanic = true
		}
		if !more {
			break
		}
	}
	return fallback
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
