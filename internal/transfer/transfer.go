package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/store"
)

// Service is the part of the content service used for transfers.
type Service interface {
	Import(ctx context.Context, recs []*models.Record) (store.BatchResult, error)
	Export(ctx context.Context, categories ...models.Category) (*models.Collection, error)
}

// Report summarises an import.
type Report struct {
	Files  int
	Total  int
	Stored int
	// Skipped lists files that could not be read or decoded.
	Skipped []string
}

// Transfer moves content between the service and files under a
// storage root.
type Transfer struct {
	fs     storage.Provider
	svc    Service
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Transfer.
func New(fs storage.Provider, svc Service, logger *slog.Logger) *Transfer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transfer{
		fs:     fs,
		svc:    svc,
		logger: logger.With("component", "transfer"),
		now:    time.Now,
	}
}

// Import reads every file matching pattern and stores their content in
// one batch.
func (t *Transfer) Import(ctx context.Context, pattern string) (Report, error) {
	files, err := t.fs.Glob(pattern)
	if err != nil {
		return Report{}, apperr.Validation("%v", err)
	}
	if len(files) == 0 {
		return Report{}, apperr.NotFound("no files match %q in %s", pattern, t.fs.Root())
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return t.importPaths(ctx, paths)
}

// ImportFile imports a single file.
func (t *Transfer) ImportFile(ctx context.Context, name string) (Report, error) {
	return t.importPaths(ctx, []string{name})
}

func (t *Transfer) importPaths(ctx context.Context, paths []string) (Report, error) {
	rep := Report{Files: len(paths)}
	var recs []*models.Record
	var firstErr error
	for _, p := range paths {
		got, err := t.readFile(p)
		if err != nil {
			t.logger.Warn("import file skipped", "path", p, "error", err)
			rep.Skipped = append(rep.Skipped, p)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		recs = append(recs, got...)
	}
	rep.Total = len(recs)
	if len(recs) == 0 {
		if firstErr != nil {
			return rep, firstErr
		}
		return rep, apperr.Validation("no content found in %d file(s)", len(paths))
	}

	res, err := t.svc.Import(ctx, recs)
	rep.Stored = res.Stored
	t.logger.Info("import finished", "files", rep.Files, "total", rep.Total, "stored", rep.Stored)
	return rep, err
}

func (t *Transfer) readFile(name string) ([]*models.Record, error) {
	f, err := FormatOf(name)
	if err != nil {
		return nil, err
	}
	data, err := t.fs.Read(name)
	if err != nil {
		return nil, apperr.Validation("cannot read %s", name)
	}
	recs, err := Decode(f, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return recs, nil
}

// Export writes the records of the given categories to name. Text exports
// write one file per record under a directory named after name without its
// extension. It returns the number of exported records.
func (t *Transfer) Export(ctx context.Context, name string, categories ...models.Category) (int, error) {
	f, err := FormatOf(name)
	if err != nil {
		return 0, err
	}
	col, err := t.svc.Export(ctx, categories...)
	if err != nil {
		return 0, err
	}
	recs := col.Records()

	if f == Text {
		ext := path.Ext(name)
		dir := strings.TrimSuffix(name, ext)
		for _, r := range recs {
			out, err := EncodeText(r)
			if err != nil {
				return 0, err
			}
			p := fmt.Sprintf("%s/%s/%.16s%s", dir, r.Category, r.Digest, ext)
			if err := t.fs.Write(p, out); err != nil {
				return 0, apperr.Internal(err, "export failed")
			}
		}
	} else {
		out, err := Encode(f, recs, Meta{Updated: models.Now(t.now())})
		if err != nil {
			return 0, err
		}
		if err := t.fs.Write(name, out); err != nil {
			return 0, apperr.Internal(err, "export failed")
		}
	}
	t.logger.Info("export finished", "name", name, "format", f, "count", len(recs))
	return len(recs), nil
}
