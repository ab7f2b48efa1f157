// Package publish mirrors a committed generation to an object store.
//
// The generation's manifest is the source of truth: only files it lists
// are uploaded, each is checked against its recorded digest first, and
// objects under the prefix that it no longer lists are removed. The
// manifest object is written after every artifact, so a reader that finds
// a manifest under the prefix finds the files it names.
package publish

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/koustreak/schemagen/internal/emit"
	"github.com/koustreak/schemagen/internal/errs"
	"github.com/koustreak/schemagen/internal/filestore"
	"github.com/koustreak/schemagen/internal/logger"
)

const (
	goContentType   = "text/x-go; charset=utf-8"
	yamlContentType = "application/yaml"

	// metaDigest is the user metadata key holding an object's SHA-256.
	metaDigest = "Sha256"
)

// Options selects where a generation is published.
type Options struct {
	Bucket string

	// Prefix is prepended to every key. Leading and trailing slashes are
	// ignored.
	Prefix string

	// Force uploads every file even when the remote manifest says it is
	// unchanged.
	Force bool

	// DryRun computes the report without touching the store.
	DryRun bool
}

// Report lists what a publish did, or would do on a dry run.
type Report struct {
	Uploaded  []string
	Unchanged []string
	Removed   []string
}

// Publisher uploads generations through a Store.
type Publisher struct {
	store filestore.Store
	fs    emit.FS
	log   *logger.Logger
}

// New returns a Publisher reading generations from the OS filesystem.
func New(store filestore.Store, log *logger.Logger) *Publisher {
	return NewWithFS(store, emit.OS, log)
}

// NewWithFS returns a Publisher reading generations from fsys.
func NewWithFS(store filestore.Store, fsys emit.FS, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{store: store, fs: fsys, log: log}
}

// Key returns the object key of a generated file under prefix.
func Key(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Publish uploads the generation committed in dir.
func (p *Publisher) Publish(ctx context.Context, dir string, opts Options) (*Report, error) {
	if opts.Bucket == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "no bucket to publish to")
	}

	local, err := emit.ReadManifest(p.fs, dir)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "nothing to publish: run generate first", err)
		}
		return nil, err
	}

	files := make(map[string][]byte, len(local.Files))
	for _, f := range local.Files {
		b, err := p.fs.ReadFile(filepath.Join(dir, f.Path))
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "read generated file "+f.Path, err)
		}
		if emit.Digest(b) != f.SHA256 {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "%s was modified after generation; regenerate before publishing", f.Path)
		}
		files[f.Path] = b
	}
	manifest, err := local.Marshal()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "encode manifest", err)
	}

	if !opts.DryRun {
		if err := p.store.EnsureBucket(ctx, opts.Bucket); err != nil {
			return nil, err
		}
	}

	remote, err := p.remoteManifest(ctx, opts)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, f := range local.Files {
		if !opts.Force && remote != nil {
			if prev, ok := remote.Lookup(f.Path); ok && prev.SHA256 == f.SHA256 {
				report.Unchanged = append(report.Unchanged, f.Path)
				continue
			}
		}
		if !opts.DryRun {
			if err := p.put(ctx, opts, f.Path, files[f.Path], goContentType, f.SHA256); err != nil {
				return nil, err
			}
		}
		report.Uploaded = append(report.Uploaded, f.Path)
	}

	if !opts.DryRun {
		if err := p.put(ctx, opts, emit.ManifestFile, manifest, yamlContentType, emit.Digest(manifest)); err != nil {
			return nil, err
		}
	}

	stale, err := p.stale(ctx, opts, local)
	if err != nil {
		return nil, err
	}
	for _, key := range stale {
		if !opts.DryRun {
			if err := p.store.RemoveObject(ctx, opts.Bucket, key); err != nil {
				return nil, err
			}
		}
		report.Removed = append(report.Removed, key)
	}

	p.log.With().
		Str("bucket", opts.Bucket).
		Str("prefix", opts.Prefix).
		Int("uploaded", len(report.Uploaded)).
		Int("unchanged", len(report.Unchanged)).
		Int("removed", len(report.Removed)).
		Logger().
		Info("generation published")
	return report, nil
}

// ManifestURL returns a presigned download URL for the published manifest.
func (p *Publisher) ManifestURL(ctx context.Context, opts Options, ttl time.Duration) (string, error) {
	return p.store.PresignGetURL(ctx, opts.Bucket, Key(opts.Prefix, emit.ManifestFile), ttl)
}

func (p *Publisher) put(ctx context.Context, opts Options, name string, data []byte, contentType, digest string) error {
	key := Key(opts.Prefix, name)
	p.log.Debugf("uploading %s/%s (%d bytes)", opts.Bucket, key, len(data))
	return p.store.PutObject(ctx, opts.Bucket, key, data, filestore.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{metaDigest: digest},
	})
}

// remoteManifest returns the manifest last published under the prefix,
// or nil when there is none or it cannot be parsed.
func (p *Publisher) remoteManifest(ctx context.Context, opts Options) (*emit.Manifest, error) {
	obj, err := p.store.GetObject(ctx, opts.Bucket, Key(opts.Prefix, emit.ManifestFile))
	if errs.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "read remote manifest", err)
	}
	m, err := emit.ParseManifest(b)
	if err != nil {
		p.log.With().Err(err).Logger().Warn("ignoring unreadable remote manifest; uploading every file")
		return nil, nil
	}
	return m, nil
}

// stale lists keys under the prefix that the local manifest does not name.
func (p *Publisher) stale(ctx context.Context, opts Options, local *emit.Manifest) ([]string, error) {
	prefix := strings.Trim(opts.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	objects, err := p.store.ListObjects(ctx, opts.Bucket, filestore.ListOptions{Prefix: prefix, Recursive: true})
	if errs.IsNotFound(err) && opts.DryRun {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, o := range objects {
		if o.IsDir {
			continue
		}
		name := strings.TrimPrefix(o.Key, prefix)
		if name == emit.ManifestFile || local.Has(name) {
			continue
		}
		keys = append(keys, o.Key)
	}
	sort.Strings(keys)
	return keys, nil
}
