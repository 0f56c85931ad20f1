package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"newsdesk/internal/domain"
	"newsdesk/internal/ports"
)

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

// psql builds queries with $n placeholders for lib/pq.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// PostgresArticles persists scraped articles into Postgres. A nil db
// turns it into a no-op store, which keeps local runs without a database
// working.
type PostgresArticles struct {
	db *sql.DB
}

var _ ports.ArticleStore = (*PostgresArticles)(nil)

// NewPostgresArticles wires a sql.DB implementation.
func NewPostgresArticles(db *sql.DB) *PostgresArticles {
	return &PostgresArticles{db: db}
}

// ExistsByURLs answers the batched dedup check with one query.
func (r *PostgresArticles) ExistsByURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	if r.db == nil || len(urls) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := psql.
		Select("url").
		From("articles").
		Where("url = ANY(?)", pq.StringArray(urls)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build exists query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing urls: %w", err)
	}

	result := make(map[string]bool)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan url: %w", err)
		}
		result[u] = true
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// Create inserts one article and returns its id. A url collision maps to
// domain.ErrDuplicateURL so the worker can record it without aborting.
func (r *PostgresArticles) Create(ctx context.Context, article domain.Article) (string, error) {
	if r.db == nil {
		return "", nil
	}

	id := article.ID
	if id == "" {
		id = uuid.NewString()
	}

	query, args, err := psql.
		Insert("articles").
		Columns("id", "title", "content", "url", "source", "summary", "tags", "published_at", "scraped_at", "created_by").
		Values(id, article.Title, article.Content, article.URL, article.Source, article.Summary,
			pq.StringArray(article.Tags), article.PublishedAt, article.ScrapedAt, article.CreatedBy).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert query: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return "", domain.ErrDuplicateURL
		}
		return "", fmt.Errorf("insert article: %w", err)
	}

	return id, nil
}
