package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a stage failure.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindToolMissing     Kind = "tool_missing"
	KindToolExecution   Kind = "tool_execution"
	KindOutputIntegrity Kind = "output_integrity"
	KindFilesystem      Kind = "filesystem"
	KindCancelled       Kind = "cancelled"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrToolMissing     = errors.New("tool missing")
	ErrToolExecution   = errors.New("tool execution failed")
	ErrOutputIntegrity = errors.New("output integrity error")
	ErrFilesystem      = errors.New("filesystem error")
	ErrCancelled       = errors.New("cancelled")
)

// Error is the typed failure returned by pipeline stages. It always carries
// the stage name and, when an external tool was involved, the tool name.
type Error struct {
	Kind       Kind
	Stage      string
	Tool       string
	Operation  string
	Message    string
	ExitCode   int
	OutputTail []string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(e.Kind.marker().Error())
	b.WriteString(": ")
	b.WriteString(buildDetail(e.Stage, e.Operation, e.Message))
	if e.Tool != "" {
		fmt.Fprintf(&b, " (tool %s", e.Tool)
		if e.Kind == KindToolExecution {
			fmt.Fprintf(&b, ", exit code %d", e.ExitCode)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.OutputTail) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(e.OutputTail, "\n"))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel marker for the error kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.marker()
}

func (k Kind) marker() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindToolMissing:
		return ErrToolMissing
	case KindToolExecution:
		return ErrToolExecution
	case KindOutputIntegrity:
		return ErrOutputIntegrity
	case KindCancelled:
		return ErrCancelled
	default:
		return ErrFilesystem
	}
}

// Wrap builds a typed error that includes stage context. When err already
// carries a cancellation the result is classified as cancelled regardless of
// the requested kind.
func Wrap(kind Kind, stage, operation, message string, err error) error {
	if err != nil && kind != KindCancelled && IsCancellation(err) {
		kind = KindCancelled
	}
	var existing *Error
	if errors.As(err, &existing) && existing.Kind == kind && existing.Stage == "" {
		clone := *existing
		clone.Stage = stage
		if clone.Operation == "" {
			clone.Operation = operation
		}
		if clone.Message == "" {
			clone.Message = message
		}
		return &clone
	}
	return &Error{Kind: kind, Stage: stage, Operation: operation, Message: message, Err: err}
}

// ToolMissing reports that a required executable could not be located.
func ToolMissing(stage, tool, message string) error {
	return &Error{Kind: KindToolMissing, Stage: stage, Tool: tool, Message: message}
}

// ToolFailed reports a non-zero exit from an external tool.
func ToolFailed(stage, tool string, exitCode int, tail []string, err error) error {
	return &Error{
		Kind:       KindToolExecution,
		Stage:      stage,
		Tool:       tool,
		Message:    "process exited with non-zero status",
		ExitCode:   exitCode,
		OutputTail: append([]string(nil), tail...),
		Err:        err,
	}
}

// Cancelled wraps a cancellation cause for the given stage. The context error
// stays in the chain so errors.Is(err, context.Canceled) keeps working.
func Cancelled(stage string, cause error) error {
	if cause == nil {
		cause = context.Canceled
	}
	return &Error{Kind: KindCancelled, Stage: stage, Message: "job cancelled", Err: cause}
}

// Tag returns err tagged with stage when it does not already carry one.
func Tag(err error, stage string) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		if typed.Stage != "" {
			return err
		}
		clone := *typed
		clone.Stage = stage
		return &clone
	}
	if IsCancellation(err) {
		return Cancelled(stage, err)
	}
	return &Error{Kind: KindFilesystem, Stage: stage, Err: err}
}

// IsCancellation reports whether err stems from context cancellation.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, ErrCancelled)
}

// KindOf returns the classification for err, defaulting to filesystem for
// untyped errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	if IsCancellation(err) {
		return KindCancelled
	}
	return KindFilesystem
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "stage failure"
	}
	return strings.Join(parts, ": ")
}

// ErrorDetails flattens a stage error for structured logging.
type ErrorDetails struct {
	Kind      Kind
	Stage     string
	Tool      string
	Operation string
	Message   string
	ExitCode  int
	Tail      []string
	Cause     error
}

// Details extracts the structured fields from err. Untyped errors report
// their text as the message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	var typed *Error
	if !errors.As(err, &typed) {
		return ErrorDetails{Kind: KindOf(err), Message: strings.TrimSpace(err.Error()), Cause: err}
	}
	return ErrorDetails{
		Kind:      typed.Kind,
		Stage:     typed.Stage,
		Tool:      typed.Tool,
		Operation: typed.Operation,
		Message:   strings.TrimSpace(typed.Message),
		ExitCode:  typed.ExitCode,
		Tail:      typed.OutputTail,
		Cause:     typed.Err,
	}
}
