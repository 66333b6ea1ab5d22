// Copyright 2024 The Bit Authors
// This file is part of bit.
package main

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit/core/checkout"
	"github.com/alekstar79/bit/core/record"
)

// fsWriteBack implements checkout.WriteBack over the real filesystem: one
// directory per component under <workspace>/components/<scope>/<name>.
type fsWriteBack struct {
	fs      afero.Fs
	workDir string
}

func (w *fsWriteBack) componentDir(id common.ComponentID) string {
	return filepath.Join(w.workDir, "components", id.Scope, id.Name)
}

func (w *fsWriteBack) WriteMany(_ context.Context, components []checkout.AppliedComponent, skipDependencyInstallation, resetConfig, verbose bool) (installationErr, compilationErr error) {
	for _, c := range components {
		dir := w.componentDir(c.ID)
		for path, content := range c.Files {
			full := filepath.Join(dir, filepath.FromSlash(path))
			if err := w.fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				return err, nil
			}
			if err := afero.WriteFile(w.fs, full, content, 0o644); err != nil {
				return err, nil
			}
		}
	}
	// Dependency installation is an external npm-equivalent capability this
	// CLI does not itself invoke (§6 Non-goals scope it out of the core);
	// skipDependencyInstallation is accepted for contract completeness.
	_ = skipDependencyInstallation
	_ = resetConfig
	return nil, nil
}

func (w *fsWriteBack) RemoveLocally(_ context.Context, ids []common.ComponentID, force bool) error {
	for _, id := range ids {
		if err := w.fs.RemoveAll(w.componentDir(id)); err != nil && !force {
			return err
		}
	}
	return nil
}

// hashesDiffer implements workspace's disk hasher hook: compares each
// recorded FileTree path's content against what's on disk for id.
func (e *env) hashesDiffer(id common.ComponentID, ft *record.FileTree) bool {
	dir := filepath.Join(e.workDir, "components", id.Scope, id.Name)
	for path, ref := range ft.Files {
		src, err := record.LoadSource(e.store, ref)
		if err != nil {
			return true
		}
		onDisk, err := afero.ReadFile(e.fs, filepath.Join(dir, filepath.FromSlash(path)))
		if err != nil {
			return true
		}
		if !bytes.Equal(src.Content, onDisk) {
			return true
		}
	}
	return false
}
