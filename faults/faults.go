// Package faults is the pipeline's error taxonomy.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindInputValidation   Kind = "input_validation"
	KindProviderExhausted Kind = "provider_exhausted"
	KindMediaTool         Kind = "media_tool"
	KindAssetMissing      Kind = "asset_missing"
	KindPersistence       Kind = "persistence"
	KindGeneration        Kind = "generation"
)

// Error carries the kind, the scene it belongs to (0 when job-wide) and any
// diagnostics captured from an external tool.
type Error struct {
	Kind        Kind
	Scene       int
	Message     string
	Diagnostics string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Scene > 0 {
		fmt.Fprintf(&b, "scene %d: ", e.Scene)
	}
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Diagnostics != "" {
		fmt.Fprintf(&b, " [%s]", e.Diagnostics)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, scene int, message string, err error) *Error {
	return &Error{Kind: kind, Scene: scene, Message: message, Err: err}
}

func InputValidation(message string, err error) *Error {
	return newError(KindInputValidation, 0, message, err)
}

func ProviderExhausted(scene int, attempts int, last error) *Error {
	return newError(KindProviderExhausted, scene, fmt.Sprintf("all %d video strategy attempts exhausted", attempts), last)
}

// MediaTool wraps a failed media tool invocation with its captured output
func MediaTool(scene int, message string, diagnostics string, err error) *Error {
	e := newError(KindMediaTool, scene, message, err)
	e.Diagnostics = strings.TrimSpace(diagnostics)
	return e
}

func AssetMissing(scene int, path string) *Error {
	return newError(KindAssetMissing, scene, fmt.Sprintf("expected file %s is missing", path), nil)
}

func Persistence(message string, err error) *Error {
	return newError(KindPersistence, 0, message, err)
}

func Generation(scene int, message string, err error) *Error {
	return newError(KindGeneration, scene, message, err)
}

// WithScene returns err scoped to scene when it is a pipeline error without one
func WithScene(err error, scene int) error {
	var fe *Error
	if errors.As(err, &fe) && fe.Scene == 0 {
		cp := *fe
		cp.Scene = scene
		return &cp
	}
	return err
}

// Is reports whether any error in err's chain is a pipeline error of kind
func Is(err error, kind Kind) bool {
	var fe *Error
	for err != nil {
		if errors.As(err, &fe) {
			if fe.Kind == kind {
				return true
			}
			err = fe.Err
			continue
		}
		return false
	}
	return false
}

// KindOf returns the kind of the outermost pipeline error in err's chain
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Innermost returns the message of the deepest error in the chain
func Innermost(err error) string {
	if err == nil {
		return ""
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
