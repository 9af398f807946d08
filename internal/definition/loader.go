// Package definition discovers per-account definition documents, builds the metric
// and SLA model from them and flattens it into serializable records.
package definition

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/dataquality"
)

var tracer = otel.Tracer("github.com/ab0utbla-k/cloudwatch-sla-streamer/internal/definition")

// Definition is the model loaded for one account. It is rebuilt on every load.
type Definition struct {
	Account    string
	MetricSets []*dataquality.MetricSet
	SLASets    []*dataquality.SLASet
}

// SLAs returns every SLA of every set, in order.
func (d *Definition) SLAs() []dataquality.SLA {
	var slas []dataquality.SLA
	for _, s := range d.SLASets {
		slas = append(slas, s.SLAs...)
	}
	return slas
}

// Archive opens a packaged definitions tree rooted at the directory holding the
// account_<id> directories.
type Archive interface {
	Open(ctx context.Context) (fs.FS, error)
}

// Loader reads definition documents for an account from a definitions tree, falling
// back to an archive when the tree has no directory for the account.
type Loader struct {
	fsys    fs.FS
	archive Archive
	logger  *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithArchive sets the fallback archive.
func WithArchive(a Archive) LoaderOption {
	return func(l *Loader) {
		l.archive = a
	}
}

// NewLoader creates a Loader over fsys.
func NewLoader(fsys fs.FS, logger *slog.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		fsys:   fsys,
		logger: logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every account_<account>/**/*.yaml and *.yml document in path order.
// Nothing is cached between calls.
func (l *Loader) Load(ctx context.Context, account string) (*Definition, error) {
	ctx, span := tracer.Start(ctx, "definition.load")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", account))

	dir := "account_" + account

	fsys, err := l.resolve(ctx, dir)
	if err != nil {
		return nil, err
	}

	def := &Definition{Account: account}
	if fsys == nil {
		l.logger.WarnContext(ctx, "no definitions found for account", slog.String("account", account))
		return def, nil
	}

	paths, err := doublestar.Glob(fsys, dir+"/**/*.{yaml,yml}", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("cannot discover definitions for account %s: %w", account, err)
	}
	slices.Sort(paths)

	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("cannot read definition %q: %w", path, err)
		}

		src, err := ParseSource(path, data)
		if err != nil {
			return nil, err
		}

		if src.MetricSet == nil {
			l.logger.InfoContext(ctx, "definition has no metric_set", slog.String("path", path))
		} else {
			def.MetricSets = append(def.MetricSets, src.MetricSet)
		}

		if src.SLASet == nil {
			l.logger.InfoContext(ctx, "definition has no sla_set", slog.String("path", path))
		} else {
			def.SLASets = append(def.SLASets, src.SLASet)
		}
	}

	span.SetAttributes(
		attribute.Int("definition.sources", len(paths)),
		attribute.Int("definition.metric_sets", len(def.MetricSets)),
		attribute.Int("definition.sla_sets", len(def.SLASets)),
	)

	return def, nil
}

// resolve returns the tree holding dir, or nil when neither the primary tree nor the
// archive has it.
func (l *Loader) resolve(ctx context.Context, dir string) (fs.FS, error) {
	if ok, err := hasDir(l.fsys, dir); err != nil {
		return nil, err
	} else if ok {
		return l.fsys, nil
	}

	if l.archive == nil {
		return nil, nil
	}

	l.logger.InfoContext(ctx, "falling back to definitions archive", slog.String("dir", dir))

	fsys, err := l.archive.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot open definitions archive: %w", err)
	}

	ok, err := hasDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return fsys, nil
}

func hasDir(fsys fs.FS, dir string) (bool, error) {
	if fsys == nil {
		return false, nil
	}

	info, err := fs.Stat(fsys, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cannot stat %q: %w", dir, err)
	}
	return info.IsDir(), nil
}
