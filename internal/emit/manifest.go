package emit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/schemagen/internal/errs"
)

// ManifestFile marks a directory as owned by schemagen.
const ManifestFile = ".schemagen.yaml"

// Artifact is one generated file, relative to the output directory.
type Artifact struct {
	Path    string
	Content []byte
}

// Digest returns the hex SHA-256 of the artifact content.
func (a Artifact) Digest() string {
	return Digest(a.Content)
}

// Digest returns the hex SHA-256 of b.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Manifest lists every file of one generation. It carries no timestamps
// so an unchanged schema produces an identical manifest.
type Manifest struct {
	Generator string      `yaml:"generator"`
	Schema    string      `yaml:"schema"`
	Dialect   string      `yaml:"dialect"`
	Package   string      `yaml:"package"`
	Files     []FileEntry `yaml:"files"`
}

// FileEntry is one manifest line.
type FileEntry struct {
	Path   string `yaml:"path"`
	SHA256 string `yaml:"sha256"`
}

// Source identifies what a generation was produced from.
type Source struct {
	Schema  string
	Dialect string
	Package string
}

// NewManifest builds the manifest for artifacts, sorted by path.
func NewManifest(src Source, artifacts []Artifact) *Manifest {
	m := &Manifest{
		Generator: "schemagen",
		Schema:    src.Schema,
		Dialect:   src.Dialect,
		Package:   src.Package,
		Files:     make([]FileEntry, len(artifacts)),
	}
	for i, a := range artifacts {
		m.Files[i] = FileEntry{Path: a.Path, SHA256: a.Digest()}
	}
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Path < m.Files[j].Path })
	return m
}

// Has reports whether path is listed.
func (m *Manifest) Has(path string) bool {
	_, ok := m.Lookup(path)
	return ok
}

// Lookup returns the entry for path.
func (m *Manifest) Lookup(path string) (FileEntry, bool) {
	i := sort.Search(len(m.Files), func(i int) bool { return m.Files[i].Path >= path })
	if i < len(m.Files) && m.Files[i].Path == path {
		return m.Files[i], true
	}
	return FileEntry{}, false
}

// Marshal encodes the manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// ReadManifest loads the manifest of dir. It returns an error of kind
// NotFound when dir carries none.
func ReadManifest(fsys FS, dir string) (*Manifest, error) {
	b, err := fsys.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.Newf(errs.ErrKindNotFound, "%s has no %s", dir, ManifestFile)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindEmitFailed, "read manifest", err)
	}

	m, err := ParseManifest(b)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindEmitFailed, "parse "+filepath.Join(dir, ManifestFile), err)
	}
	return m, nil
}

// ParseManifest decodes a manifest written by Marshal.
func ParseManifest(b []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m.Generator != "schemagen" {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "not a schemagen manifest (generator %q)", m.Generator)
	}
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Path < m.Files[j].Path })
	return &m, nil
}
