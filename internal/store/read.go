package store

import (
	"context"
	"database/sql"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/query"
)

// Select runs req and returns the page together with the total number of
// matching rows. req.Filter is applied to the fetched page afterwards; an
// invalid filter is logged and ignored.
func (s *Store) Select(ctx context.Context, req query.Request) (*models.Collection, error) {
	q, err := s.builder.Build(req)
	if err != nil {
		return nil, err
	}
	var total int
	if err := s.db.QueryRowContext(ctx, q.CountSQL, q.CountArgs...).Scan(&total); err != nil {
		return nil, s.readError(err, "content search failed")
	}
	rows, err := s.db.QueryContext(ctx, q.FetchSQL, q.FetchArgs...)
	if err != nil {
		return nil, s.readError(err, "content search failed")
	}
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, s.readError(err, "content search failed")
	}
	return models.NewCollection(s.filter(req.Filter, recs), total), nil
}

// SelectByCategory returns every record in the given categories, or all
// records when none are given.
func (s *Store) SelectByCategory(ctx context.Context, categories ...models.Category) (*models.Collection, error) {
	q, err := s.builder.Scan(categories...)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q.FetchSQL, q.FetchArgs...)
	if err != nil {
		return nil, apperr.Internal(err, "content export failed")
	}
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, apperr.Internal(err, "content export failed")
	}
	return models.NewCollection(recs, len(recs)), nil
}

// Get returns the single record whose digest starts with prefix.
func (s *Store) Get(ctx context.Context, prefix string) (*models.Record, error) {
	return s.resolve(ctx, s.db, prefix)
}

// Stats counts records per category.
func (s *Store) Stats(ctx context.Context) (map[models.Category]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT category, COUNT(*) FROM "+query.Table+" GROUP BY category")
	if err != nil {
		return nil, apperr.Internal(err, "content stats failed")
	}
	defer rows.Close()

	out := make(map[models.Category]int, len(models.Categories()))
	for _, c := range models.Categories() {
		out[c] = 0
	}
	for rows.Next() {
		var (
			cat string
			n   int
		)
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, apperr.Internal(err, "content stats failed")
		}
		out[models.Category(cat)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(err, "content stats failed")
	}
	return out, nil
}

// resolve maps a digest prefix to exactly one record.
func (s *Store) resolve(ctx context.Context, q querier, prefix string) (*models.Record, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, apperr.Validation("content digest is required")
	}
	recs, err := s.fetch(ctx, q, query.Request{DigestPrefix: prefix, Limit: 2})
	if err != nil {
		return nil, err
	}
	switch len(recs) {
	case 0:
		return nil, apperr.NotFound("cannot find content with digest %s", prefix)
	case 1:
		return recs[0], nil
	default:
		return nil, apperr.Ambiguous("content digest %s matched more than one content, use a longer digest", prefix)
	}
}

func (s *Store) fetch(ctx context.Context, q querier, req query.Request) ([]*models.Record, error) {
	built, err := s.builder.Build(req)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, built.FetchSQL, built.FetchArgs...)
	if err != nil {
		return nil, s.readError(err, "content lookup failed")
	}
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, s.readError(err, "content lookup failed")
	}
	return recs, nil
}

// readError reports a keyword pattern the database cannot compile as a
// validation cause; anything else is internal.
func (s *Store) readError(err error, msg string) error {
	if s.backend.IsInvalidPattern(err) {
		return apperr.Validation("invalid search keyword: %v", err)
	}
	return apperr.Internal(err, "%s", msg)
}

// filter keeps records where any column matches pattern.
func (s *Store) filter(pattern string, recs []*models.Record) []*models.Record {
	if pattern == "" {
		return recs
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		s.logger.Warn("ignoring invalid filter", "filter", pattern, "error", err)
		return recs
	}
	out := recs[:0]
	for _, r := range recs {
		if re.MatchString(rowText(r)) {
			out = append(out, r)
		}
	}
	return out
}

func rowText(r *models.Record) string {
	return strings.Join([]string{
		string(r.Category), r.DataString(), r.Brief, r.Description, r.Group,
		r.TagsString(), r.LinksString(), r.Source, r.VersionsString(), r.Filename,
		r.Created, r.Updated, r.UUID, r.Digest,
	}, "\n")
}

// scanRecords reads rows selected with query.Columns and closes them.
func scanRecords(rows *sql.Rows) ([]*models.Record, error) {
	defer rows.Close()
	out := []*models.Record{}
	for rows.Next() {
		var r models.Record
		var id int64
		var cat, data, tags, links, versions string
		if err := rows.Scan(
			&id, &cat, &data, &r.Brief, &r.Description, &r.Group, &tags, &links,
			&r.Source, &versions, &r.Filename, &r.Created, &r.Updated, &r.UUID, &r.Digest,
		); err != nil {
			return nil, err
		}
		r.Key = strconv.FormatInt(id, 10)
		r.Category = models.Category(cat)
		r.Data = models.SplitData(data)
		r.Tags = models.SplitTags(tags)
		r.Links = models.SplitLinks(links)
		r.Versions = models.SplitVersions(versions)
		out = append(out, &r)
	}
	return out, rows.Err()
}
