// Package contentservice coordinates the content store and change events.
package contentservice

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/query"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/store"
)

// Notifier receives content changes, typically an *sse.Broker.
type Notifier interface {
	Notify(sse.Change)
}

// Stats summarises the stored content.
type Stats struct {
	Total      int                     `json:"total"`
	Categories map[models.Category]int `json:"categories"`
}

// Service is the single entry point used by the CLI, REST, and MCP surfaces.
type Service struct {
	store    store.ContentStore
	notifier Notifier
	logger   *slog.Logger
	limit    int
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the change notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithDefaultLimit caps searches that do not ask for a page size.
// Zero leaves them unlimited.
func WithDefaultLimit(n int) Option {
	return func(s *Service) { s.limit = n }
}

// New creates a Service over st.
func New(st store.ContentStore, opts ...Option) *Service {
	s := &Service{store: st, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("component", "contentservice")
	return s
}

// Create stores one record.
func (s *Service) Create(ctx context.Context, rec *models.Record) (*models.Record, error) {
	stored, err := s.store.Insert(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.notify(sse.Change{Kind: sse.Created, Digest: stored.Digest})
	return stored, nil
}

// CreateMany stores every record it can and reports a created event for
// each one.
func (s *Service) CreateMany(ctx context.Context, recs []*models.Record) (store.BatchResult, error) {
	res, err := s.store.InsertBatch(ctx, recs)
	for _, r := range res.Records {
		s.notify(sse.Change{Kind: sse.Created, Digest: r.Digest})
	}
	return res, err
}

// Import stores records read from an external document. Listeners get
// one imported event instead of one per record.
func (s *Service) Import(ctx context.Context, recs []*models.Record) (store.BatchResult, error) {
	res, err := s.store.InsertBatch(ctx, recs)
	if res.Stored > 0 {
		s.notify(sse.Change{Kind: sse.Imported, Count: res.Stored})
	}
	return res, err
}

// Get returns the record whose digest starts with digest.
func (s *Service) Get(ctx context.Context, digest string) (*models.Record, error) {
	return s.store.Get(ctx, digest)
}

// Search runs req. A sort on an unknown column falls back to the default
// order rather than failing the search.
func (s *Service) Search(ctx context.Context, req query.Request) (*models.Collection, error) {
	if req.Limit == 0 && s.limit > 0 {
		req.Limit = s.limit
	}
	col, err := s.store.Select(ctx, req)
	if errors.Is(err, query.ErrUnknownSortField) {
		s.logger.Warn("unknown sort field, using default order", "sort", req.Sort, "error", err)
		req.Sort = nil
		col, err = s.store.Select(ctx, req)
	}
	return col, err
}

// Update replaces the record whose digest starts with digest.
func (s *Service) Update(ctx context.Context, digest string, rec *models.Record) (*models.Record, error) {
	updated, err := s.store.Update(ctx, digest, rec)
	if err != nil {
		return nil, err
	}
	s.notify(sse.Change{Kind: sse.Updated, Digest: updated.Digest})
	return updated, nil
}

// Delete removes the record whose digest starts with digest.
func (s *Service) Delete(ctx context.Context, digest string) (*models.Record, error) {
	deleted, err := s.store.Delete(ctx, digest)
	if err != nil {
		return nil, err
	}
	s.notify(sse.Change{Kind: sse.Deleted, Digest: deleted.Digest})
	return deleted, nil
}

// Export returns every record in the given categories, all when none.
func (s *Service) Export(ctx context.Context, categories ...models.Category) (*models.Collection, error) {
	return s.store.SelectByCategory(ctx, categories...)
}

// Stats counts stored records.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	byCat, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{Categories: byCat}
	for _, n := range byCat {
		st.Total += n
	}
	return st, nil
}

// Ready reports whether the store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) notify(c sse.Change) {
	if s.notifier != nil {
		s.notifier.Notify(c)
	}
}
