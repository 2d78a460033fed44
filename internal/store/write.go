package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/query"
)

// BatchResult reports the outcome of InsertBatch.
type BatchResult struct {
	Total   int
	Stored  int
	Records []*models.Record
	// Cause is the first rejection, if any.
	Cause error
}

// Insert stores a copy of rec. The copy is normalised, gets a UUID and
// timestamps when missing, and its digest is computed from the identity
// fields. The stored record is returned.
func (s *Store) Insert(ctx context.Context, rec *models.Record) (*models.Record, error) {
	r, err := s.prepare(rec)
	if err != nil {
		return nil, err
	}
	now := models.Now(s.now())
	if r.UUID == "" {
		r.UUID = uuid.NewString()
	}
	if r.Created == "" {
		r.Created = now
	}
	if r.Updated == "" {
		r.Updated = r.Created
	}
	r.Digest = checksum.Compute(r.Identity())

	if _, err := s.db.ExecContext(ctx, s.insertSQL(), insertArgs(r)...); err != nil {
		return nil, s.writeError(ctx, err, r)
	}
	s.logger.Debug("content stored", "digest", r.Digest, "category", r.Category)
	return s.exact(ctx, r.Digest)
}

// InsertBatch inserts every record independently. Rejected records are
// skipped and logged. An error is returned only when nothing was stored.
func (s *Store) InsertBatch(ctx context.Context, recs []*models.Record) (BatchResult, error) {
	res := BatchResult{Total: len(recs)}
	if len(recs) == 0 {
		return res, apperr.Validation("no content to store")
	}
	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return res, apperr.Internal(err, "batch insert interrupted")
		}
		stored, err := s.Insert(ctx, rec)
		if err != nil {
			s.logger.Warn("content skipped", "index", i, "error", err)
			if res.Cause == nil {
				res.Cause = err
			}
			continue
		}
		res.Stored++
		res.Records = append(res.Records, stored)
	}
	s.logger.Info("batch stored", "total", res.Total, "stored", res.Stored)
	if res.Stored == 0 {
		return res, res.Cause
	}
	return res, nil
}

// Update replaces the record whose digest starts with prefix. UUID and
// created are kept, updated is refreshed, and the digest is recomputed.
func (s *Store) Update(ctx context.Context, prefix string, rec *models.Record) (*models.Record, error) {
	r, err := s.prepare(rec)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Internal(err, "content could not be updated")
	}
	defer tx.Rollback() //nolint:errcheck

	old, err := s.resolve(ctx, tx, prefix)
	if err != nil {
		return nil, err
	}
	r.UUID = old.UUID
	r.Created = old.Created
	r.Updated = models.Now(s.now())
	r.Digest = checksum.Compute(r.Identity())

	id, err := strconv.ParseInt(old.Key, 10, 64)
	if err != nil {
		return nil, apperr.Internal(err, "content could not be updated")
	}
	if _, err := tx.ExecContext(ctx, s.updateSQL(), append(updateArgs(r), id)...); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, s.writeError(ctx, err, r)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Internal(err, "content could not be updated")
	}
	s.logger.Debug("content updated", "old_digest", old.Digest, "digest", r.Digest)
	return s.exact(ctx, r.Digest)
}

// Delete removes the record whose digest starts with prefix and returns it.
func (s *Store) Delete(ctx context.Context, prefix string) (*models.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Internal(err, "content could not be deleted")
	}
	defer tx.Rollback() //nolint:errcheck

	old, err := s.resolve(ctx, tx, prefix)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(old.Key, 10, 64)
	if err != nil {
		return nil, apperr.Internal(err, "content could not be deleted")
	}
	stmt := "DELETE FROM " + query.Table + " WHERE id = " + s.backend.Placeholder(1)
	if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
		return nil, apperr.Internal(err, "content could not be deleted")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Internal(err, "content could not be deleted")
	}
	s.logger.Debug("content deleted", "digest", old.Digest)
	return old, nil
}

// prepare returns a normalised copy of rec that is fit to be stored.
func (s *Store) prepare(rec *models.Record) (*models.Record, error) {
	if rec == nil {
		return nil, apperr.Validation("content is required")
	}
	r := rec.Clone()
	r.Normalize()
	if !r.Category.Valid() {
		return nil, apperr.Validation("unknown content category %q", r.Category)
	}
	if !r.HasData() {
		return nil, apperr.Validation("content was not stored because mandatory content data was missing")
	}
	if r.IsTemplate() {
		return nil, apperr.Validation("content was not stored because the content data was matching to an empty template")
	}
	return r, nil
}

// writeError turns a failed write into a conflict naming the record that
// already holds the digest or UUID, or into an internal error.
func (s *Store) writeError(ctx context.Context, err error, r *models.Record) error {
	if !s.backend.IsUniqueViolation(err) {
		return apperr.Internal(err, "content could not be stored")
	}
	if existing, lerr := s.exact(ctx, r.Digest); lerr == nil {
		return apperr.Conflict(existing.Digest, "content digest %.16s already exists", existing.Digest)
	}
	if existing, lerr := s.lookup(ctx, query.Request{UUID: r.UUID}); lerr == nil {
		return apperr.Conflict(existing.Digest, "content uuid %s already exists with digest %.16s", r.UUID, existing.Digest)
	}
	return apperr.Conflict(r.Digest, "content digest %.16s already exists", r.Digest)
}

// exact fetches the record with exactly the given digest.
func (s *Store) exact(ctx context.Context, digest string) (*models.Record, error) {
	rec, err := s.lookup(ctx, query.Request{DigestPrefix: digest})
	if err != nil {
		return nil, err
	}
	if rec.Digest != digest {
		return nil, apperr.NotFound("cannot find content with digest %s", digest)
	}
	return rec, nil
}

func (s *Store) lookup(ctx context.Context, req query.Request) (*models.Record, error) {
	req.Limit = 1
	recs, err := s.fetch(ctx, s.db, req)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, apperr.NotFound("cannot find content")
	}
	return recs[0], nil
}

var writeColumns = query.Columns[1:]

func (s *Store) insertSQL() string {
	ph := make([]string, len(writeColumns))
	for i := range writeColumns {
		ph[i] = s.backend.Placeholder(i + 1)
	}
	return "INSERT INTO " + query.Table + " (" + strings.Join(writeColumns, ", ") + ") VALUES (" + strings.Join(ph, ", ") + ")"
}

// updateSQL sets every column except id, uuid, and created.
func (s *Store) updateSQL() string {
	var sets []string
	n := 0
	for _, c := range writeColumns {
		if c == "uuid" || c == "created" {
			continue
		}
		n++
		sets = append(sets, c+" = "+s.backend.Placeholder(n))
	}
	return "UPDATE " + query.Table + " SET " + strings.Join(sets, ", ") + " WHERE id = " + s.backend.Placeholder(n+1)
}

func insertArgs(r *models.Record) []any {
	return []any{
		string(r.Category), r.DataString(), r.Brief, r.Description, r.Group,
		r.TagsString(), r.LinksString(), r.Source, r.VersionsString(), r.Filename,
		r.Created, r.Updated, r.UUID, r.Digest,
	}
}

func updateArgs(r *models.Record) []any {
	return []any{
		string(r.Category), r.DataString(), r.Brief, r.Description, r.Group,
		r.TagsString(), r.LinksString(), r.Source, r.VersionsString(), r.Filename,
		r.Updated, r.Digest,
	}
}
