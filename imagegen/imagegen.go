// Package imagegen produces still images for characters and scenes.
package imagegen

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
)

// Generator renders images from prompts, optionally anchored on reference images
type Generator interface {
	Generate(ctx context.Context, prompt, dest string) error
	EditWithReferences(ctx context.Context, refs []string, prompt, dest string) error
}

// Plain generates from a prompt only
type Plain interface {
	Generate(ctx context.Context, prompt, dest string) error
}

// Editor generates from a prompt plus reference images
type Editor interface {
	EditWithReferences(ctx context.Context, refs []string, prompt, dest string) error
}

// WithReferences combines a plain generator with an optional reference editor.
// Reference edits that fail, or have no editor or references, fall back to
// plain generation.
type WithReferences struct {
	plain  Plain
	editor Editor
}

func NewWithReferences(plain Plain, editor Editor) *WithReferences {
	return &WithReferences{plain: plain, editor: editor}
}

func (w *WithReferences) Generate(ctx context.Context, prompt, dest string) error {
	return w.plain.Generate(ctx, prompt, dest)
}

func (w *WithReferences) EditWithReferences(ctx context.Context, refs []string, prompt, dest string) error {
	if w.editor != nil && len(refs) > 0 {
		err := w.editor.EditWithReferences(ctx, refs, prompt, dest)
		if err == nil {
			return nil
		}
		log.Printf("[images] ⚠️ reference edit failed for %s, falling back to plain generation: %v", filepath.Base(dest), err)
	}
	if err := w.plain.Generate(ctx, prompt, dest); err != nil {
		return fmt.Errorf("plain generation: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
