package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/user/newshound/internal/types"
)

const articleColumns = `id, url, title, content, summary, source_name, category,
	language, was_translated, source_type, validation_status, credibility_score,
	reasoning, is_actionable, why_it_matters, cross_reference_count, fetched_at, expires_at`

// SaveArticle inserts or updates an article by id.
func (s *Store) SaveArticle(ctx context.Context, a *types.Article) error {
	query := `
	INSERT INTO articles (` + articleColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		url = excluded.url,
		title = excluded.title,
		content = excluded.content,
		summary = excluded.summary,
		source_name = excluded.source_name,
		category = excluded.category,
		language = excluded.language,
		was_translated = excluded.was_translated,
		source_type = excluded.source_type,
		validation_status = excluded.validation_status,
		credibility_score = excluded.credibility_score,
		reasoning = excluded.reasoning,
		is_actionable = excluded.is_actionable,
		why_it_matters = excluded.why_it_matters,
		cross_reference_count = excluded.cross_reference_count,
		fetched_at = excluded.fetched_at,
		expires_at = excluded.expires_at
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.URL, a.Title, a.Content, a.Summary, a.SourceName, a.Category,
		a.Language, a.WasTranslated, a.SourceType, a.ValidationStatus, a.CredibilityScore,
		a.Reasoning, a.IsActionable, a.WhyItMatters, a.CrossReferenceCount, a.FetchedAt, a.ExpiresAt,
	)
	if err != nil {
		return storeErr("save article", err)
	}
	return nil
}

// Article retrieves one article by id, types.ErrNotFound when missing.
func (s *Store) Article(ctx context.Context, id types.ArticleID) (*types.Article, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)

	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get article", err)
	}
	return a, nil
}

// RecentURLs returns the set of URLs fetched at or after since. The
// deduplicator checks candidate URLs against this set.
func (s *Store) RecentURLs(ctx context.Context, since time.Time) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url FROM articles WHERE fetched_at >= ?`, since)
	if err != nil {
		return nil, storeErr("recent urls", err)
	}
	defer rows.Close()

	urls := make(map[string]bool)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, storeErr("recent urls", err)
		}
		urls[u] = true
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("recent urls", err)
	}
	return urls, nil
}

// RecentArticles lists articles most recent first, optionally filtered by
// category. A limit <= 0 defaults to 20.
func (s *Store) RecentArticles(ctx context.Context, category types.Category, limit int) ([]*types.Article, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + articleColumns + ` FROM articles`
	args := []any{}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY fetched_at DESC LIMIT ?`
	args = append(args, limit)

	return s.queryArticles(ctx, "recent articles", query, args...)
}

// TopArticles lists the highest-credibility articles fetched at or after
// since, most credible first.
func (s *Store) TopArticles(ctx context.Context, since time.Time, limit int) ([]*types.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles
		WHERE fetched_at >= ?
		ORDER BY credibility_score DESC, fetched_at DESC LIMIT ?`
	return s.queryArticles(ctx, "top articles", query, since, limit)
}

// SearchArticles is the case-insensitive substring fallback behind the
// full-text index: title matches outrank summary matches outrank content
// matches, ties broken by recency.
func (s *Store) SearchArticles(ctx context.Context, query string, limit int) ([]*types.Article, error) {
	if limit <= 0 {
		limit = 10
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	q := `SELECT ` + articleColumns + `,
		CASE
			WHEN instr(lower(title), ?) > 0 THEN 3
			WHEN instr(lower(summary), ?) > 0 THEN 2
			WHEN instr(lower(content), ?) > 0 THEN 1
			ELSE 0
		END AS weight
	FROM articles
	WHERE instr(lower(title), ?) > 0
		OR instr(lower(summary), ?) > 0
		OR instr(lower(content), ?) > 0
	ORDER BY weight DESC, fetched_at DESC
	LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q,
		needle, needle, needle, needle, needle, needle, limit)
	if err != nil {
		return nil, storeErr("search articles", err)
	}
	defer rows.Close()

	var articles []*types.Article
	for rows.Next() {
		a, weight := &types.Article{}, 0
		if err := scanArticleFields(rows, a, &weight); err != nil {
			return nil, storeErr("search articles", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("search articles", err)
	}
	return articles, nil
}

// DeleteExpiredArticles removes articles whose expires_at has passed and
// returns their ids so the caller can prune the text index.
func (s *Store) DeleteExpiredArticles(ctx context.Context, now time.Time) ([]types.ArticleID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM articles WHERE expires_at <= ?`, now)
	if err != nil {
		return nil, storeErr("list expired", err)
	}

	var ids []types.ArticleID
	for rows.Next() {
		var id types.ArticleID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, storeErr("list expired", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, storeErr("list expired", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM articles WHERE expires_at <= ?`, now); err != nil {
		return nil, storeErr("delete expired", err)
	}
	return ids, nil
}

func (s *Store) queryArticles(ctx context.Context, op, query string, args ...any) ([]*types.Article, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	var articles []*types.Article
	for rows.Next() {
		a := &types.Article{}
		if err := scanArticleFields(rows, a); err != nil {
			return nil, storeErr(op, err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return articles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*types.Article, error) {
	a := &types.Article{}
	if err := scanArticleFields(row, a); err != nil {
		return nil, err
	}
	return a, nil
}

func scanArticleFields(row rowScanner, a *types.Article, extra ...any) error {
	var content, summary, sourceName, language sql.NullString
	var sourceType, validationStatus, reasoning, whyItMatters sql.NullString

	dest := []any{
		&a.ID, &a.URL, &a.Title, &content, &summary, &sourceName, &a.Category,
		&language, &a.WasTranslated, &sourceType, &validationStatus, &a.CredibilityScore,
		&reasoning, &a.IsActionable, &whyItMatters, &a.CrossReferenceCount, &a.FetchedAt, &a.ExpiresAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return err
	}

	a.Content = content.String
	a.Summary = summary.String
	a.SourceName = sourceName.String
	a.Language = language.String
	a.SourceType = types.SourceType(sourceType.String)
	a.ValidationStatus = types.ValidationStatus(validationStatus.String)
	a.Reasoning = reasoning.String
	a.WhyItMatters = whyItMatters.String
	return nil
}
