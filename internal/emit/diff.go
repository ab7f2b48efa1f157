package emit

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/koustreak/schemagen/internal/errs"
)

// Diff is the difference between a rendered generation and what is on
// disk.
type Diff struct {
	Added   []string // rendered but absent on disk
	Changed []string // present on both sides with different content
	Removed []string // on disk but no longer rendered
}

// Empty reports whether disk matches the rendered generation.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}

// Compare checks artifacts against dir without writing anything. Disk
// content is hashed directly, so hand edits show up as Changed even when
// the manifest still matches.
func Compare(fsys FS, dir string, artifacts []Artifact) (Diff, error) {
	var d Diff

	old, err := ReadManifest(fsys, dir)
	if err != nil && !errs.IsNotFound(err) {
		return d, err
	}

	rendered := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		rendered[a.Path] = true
		b, err := fsys.ReadFile(filepath.Join(dir, a.Path))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			d.Added = append(d.Added, a.Path)
		case err != nil:
			return d, errs.Wrap(errs.ErrKindEmitFailed, "read "+a.Path, err)
		case Digest(b) != a.Digest():
			d.Changed = append(d.Changed, a.Path)
		}
	}

	if old != nil {
		for _, f := range old.Files {
			if !rendered[f.Path] {
				if _, err := fsys.Stat(filepath.Join(dir, f.Path)); err == nil {
					d.Removed = append(d.Removed, f.Path)
				}
			}
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Changed)
	sort.Strings(d.Removed)
	return d, nil
}
