// Package emit commits generated artifacts to disk.
//
// A generation is written into a temporary directory next to the target
// and swapped in, so readers see either the previous generation or the new
// one in full. On Linux the swap is a single renameat2 RENAME_EXCHANGE;
// elsewhere, or when the filesystem refuses it, the previous generation is
// renamed aside first and the target path is briefly absent. The target is only ever replaced
// when it carries a manifest from an earlier run.
package emit

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/koustreak/schemagen/internal/errs"
	"github.com/koustreak/schemagen/internal/logger"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Emitter writes generations through an FS.
type Emitter struct {
	fs  FS
	log *logger.Logger
}

// New returns an Emitter over the OS filesystem.
func New(log *logger.Logger) *Emitter {
	return NewWithFS(OS, log)
}

// NewWithFS returns an Emitter over fsys.
func NewWithFS(fsys FS, log *logger.Logger) *Emitter {
	if log == nil {
		log = logger.Nop()
	}
	return &Emitter{fs: fsys, log: log}
}

// Commit replaces outDir with exactly artifacts plus a manifest. On any
// failure the previous contents of outDir are left untouched and the
// error is of kind EmitFailed.
func (e *Emitter) Commit(outDir string, src Source, artifacts []Artifact) (*Manifest, error) {
	if err := validateArtifacts(artifacts); err != nil {
		return nil, err
	}

	target, err := filepath.Abs(outDir)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindEmitFailed, "resolve "+outDir, err)
	}
	exists, err := e.checkReplaceable(target)
	if err != nil {
		return nil, err
	}

	parent := filepath.Dir(target)
	if err := e.fs.MkdirAll(parent, dirPerm); err != nil {
		return nil, errs.Wrap(errs.ErrKindEmitFailed, "create "+parent, err)
	}
	tmp, err := e.fs.MkdirTemp(parent, ".schemagen-")
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindEmitFailed, "create staging directory", err)
	}

	manifest := NewManifest(src, artifacts)
	if err := e.stage(tmp, manifest, artifacts); err != nil {
		e.discard(tmp)
		return nil, err
	}

	if err := e.swap(tmp, target, exists); err != nil {
		e.discard(tmp)
		return nil, err
	}

	e.log.With().
		Str("dir", target).
		Int("files", len(artifacts)).
		Logger().
		Info("generation committed")
	return manifest, nil
}

func (e *Emitter) stage(tmp string, manifest *Manifest, artifacts []Artifact) error {
	for _, a := range artifacts {
		if err := e.fs.WriteFile(filepath.Join(tmp, a.Path), a.Content, filePerm); err != nil {
			return errs.Wrap(errs.ErrKindEmitFailed, "write "+a.Path, err)
		}
		e.log.Debugf("staged %s (%d bytes)", a.Path, len(a.Content))
	}

	b, err := manifest.Marshal()
	if err != nil {
		return errs.Wrap(errs.ErrKindEmitFailed, "encode manifest", err)
	}
	if err := e.fs.WriteFile(filepath.Join(tmp, ManifestFile), b, filePerm); err != nil {
		return errs.Wrap(errs.ErrKindEmitFailed, "write "+ManifestFile, err)
	}
	if err := e.fs.Chmod(tmp, dirPerm); err != nil {
		return errs.Wrap(errs.ErrKindEmitFailed, "chmod staging directory", err)
	}
	return nil
}

// swap moves tmp to target. An existing target is exchanged with tmp in one
// step where the filesystem allows it; otherwise it is moved aside and
// restored if the second rename fails.
func (e *Emitter) swap(tmp, target string, exists bool) error {
	if !exists {
		if err := e.fs.Rename(tmp, target); err != nil {
			return errs.Wrap(errs.ErrKindEmitFailed, "move generation into place", err)
		}
		return nil
	}

	if x, ok := e.fs.(Exchanger); ok {
		err := x.Exchange(tmp, target)
		if err == nil {
			// tmp now holds the previous generation
			e.discard(tmp)
			return nil
		}
		if !errors.Is(err, errors.ErrUnsupported) {
			return errs.Wrap(errs.ErrKindEmitFailed, "exchange generation into place", err)
		}
		e.log.Debugf("atomic exchange unavailable, falling back to renames: %v", err)
	}

	prev := tmp + "-prev"
	if err := e.fs.Rename(target, prev); err != nil {
		return errs.Wrap(errs.ErrKindEmitFailed, "move previous generation aside", err)
	}
	if err := e.fs.Rename(tmp, target); err != nil {
		if rerr := e.fs.Rename(prev, target); rerr != nil {
			return errs.Wrap(errs.ErrKindEmitFailed,
				fmt.Sprintf("move generation into place; previous generation left at %s", prev), err)
		}
		return errs.Wrap(errs.ErrKindEmitFailed, "move generation into place", err)
	}
	e.discard(prev)
	return nil
}

func (e *Emitter) discard(dir string) {
	if err := e.fs.RemoveAll(dir); err != nil {
		e.log.Warnf("cannot remove %s: %v", dir, err)
	}
}

// checkReplaceable reports whether target exists and fails if it holds
// anything a previous generation did not write.
func (e *Emitter) checkReplaceable(target string) (bool, error) {
	info, err := e.fs.Stat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(errs.ErrKindEmitFailed, "stat "+target, err)
	}
	if !info.IsDir() {
		return false, errs.Newf(errs.ErrKindEmitFailed, "%s exists and is not a directory", target)
	}

	entries, err := e.fs.ReadDir(target)
	if err != nil {
		return false, errs.Wrap(errs.ErrKindEmitFailed, "read "+target, err)
	}
	if len(entries) == 0 {
		return true, nil
	}

	manifest, err := ReadManifest(e.fs, target)
	if errs.IsNotFound(err) {
		return false, errs.Newf(errs.ErrKindEmitFailed,
			"refusing to replace %s: directory is not empty and has no %s", target, ManifestFile)
	}
	if err != nil {
		return false, err
	}

	var foreign []string
	for _, entry := range entries {
		name := entry.Name()
		if name == ManifestFile {
			continue
		}
		if entry.IsDir() || !manifest.Has(name) {
			foreign = append(foreign, name)
		}
	}
	if len(foreign) > 0 {
		sort.Strings(foreign)
		return false, errs.Newf(errs.ErrKindEmitFailed,
			"refusing to replace %s: it contains files schemagen did not write: %s",
			target, strings.Join(foreign, ", "))
	}
	return true, nil
}

func validateArtifacts(artifacts []Artifact) error {
	seen := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		switch {
		case a.Path == "" || a.Path != filepath.Base(a.Path) || a.Path == "." || a.Path == "..":
			return errs.Newf(errs.ErrKindEmitFailed, "artifact path %q must be a plain file name", a.Path)
		case a.Path == ManifestFile:
			return errs.Newf(errs.ErrKindEmitFailed, "artifact path %q is reserved", a.Path)
		case seen[a.Path]:
			return errs.Newf(errs.ErrKindEmitFailed, "artifact %q emitted twice", a.Path)
		}
		seen[a.Path] = true
	}
	return nil
}
