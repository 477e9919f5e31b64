// Package dater runs the single pass that reads an archive and groups its
// entries by modification date.
package dater

import (
	"context"
	"io"
	"log/slog"

	"github.com/d-kuro/archive-dater/internal/archive"
	"github.com/d-kuro/archive-dater/internal/datebucket"
	"github.com/d-kuro/archive-dater/internal/errors"
	"github.com/d-kuro/archive-dater/internal/logging"
)

// EntrySource yields archive entries until io.EOF.
type EntrySource interface {
	Next() (*archive.Entry, error)
}

// Stats summarizes a pass.
type Stats struct {
	Entries int
	Skipped int
}

// StdinPath names standard input as the archive.
const StdinPath = "-"

// Options configures Run.
type Options struct {
	MaxDates int
	Logger   *logging.Logger
	// Stdin is read when the path is StdinPath.
	Stdin io.Reader
}

// Result is the outcome of Run.
type Result struct {
	Buckets *datebucket.Bucketer
	Stats   Stats
	Format  string
	Filter  string
}

// Collect adds every dated entry of src to b. Entries without a
// modification time are counted as skipped. The first error aborts the pass.
func Collect(ctx context.Context, src EntrySource, b *datebucket.Bucketer, logger *logging.Logger) (Stats, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	var stats Stats
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		entry, err := src.Next()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
		stats.Entries++

		if !entry.HasModTime {
			stats.Skipped++
			logger.Debug("Skipping entry without modification time", slog.String("path", entry.Pathname))
			continue
		}

		if err := b.AddTime(entry.ModTime, entry.Pathname); err != nil {
			return stats, errors.Wrap(err, "failed to add %q", entry.Pathname)
		}
		logger.Debug("Added entry", slog.String("path", entry.Pathname), slog.Time("mtime", entry.ModTime))
	}
}

// Run opens the archive at path and groups its entries by date.
func Run(ctx context.Context, path string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithArchive(path)

	r, err := open(path, opts.Stdin)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := r.Close(); err != nil {
			logger.Warn("Failed to close archive", slog.Any("error", err))
		}
	}()

	logger.Debug("Opened archive", slog.String("format", r.Format()), slog.String("filter", r.Filter()))

	b := datebucket.New(opts.MaxDates)
	stats, err := Collect(ctx, r, b, logger)
	if err != nil {
		return nil, err
	}

	return &Result{
		Buckets: b,
		Stats:   stats,
		Format:  r.Format(),
		Filter:  r.Filter(),
	}, nil
}

func open(path string, stdin io.Reader) (*archive.Reader, error) {
	if path != StdinPath {
		return archive.Open(path)
	}
	if stdin == nil {
		return nil, errors.Archive("no standard input to read the archive from")
	}
	return archive.NewReader(stdin)
}
