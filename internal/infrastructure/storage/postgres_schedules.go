package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"newsdesk/internal/domain"
	"newsdesk/internal/ports"
)

// PostgresSchedules persists per-user daily discovery settings.
type PostgresSchedules struct {
	db *sql.DB
}

var _ ports.ScheduleStore = (*PostgresSchedules)(nil)

// NewPostgresSchedules wires a sql.DB implementation.
func NewPostgresSchedules(db *sql.DB) *PostgresSchedules {
	return &PostgresSchedules{db: db}
}

// Save upserts the user's schedule snapshot.
func (r *PostgresSchedules) Save(ctx context.Context, cfg domain.ScheduleConfig) error {
	if r.db == nil {
		return nil
	}

	query, args, err := psql.
		Insert("schedules").
		Columns("user_id", "hour", "minute", "enabled", "auto_tag", "skip_duplicates",
			"include_papers", "paper_categories", "paper_max_results").
		Values(cfg.UserID, cfg.Hour, cfg.Minute, cfg.Enabled, cfg.AutoTag, cfg.SkipDuplicates,
			cfg.IncludePapers, pq.StringArray(cfg.PaperCategories), cfg.PaperMaxResults).
		Suffix(`ON CONFLICT (user_id) DO UPDATE
            SET hour = EXCLUDED.hour,
                minute = EXCLUDED.minute,
                enabled = EXCLUDED.enabled,
                auto_tag = EXCLUDED.auto_tag,
                skip_duplicates = EXCLUDED.skip_duplicates,
                include_papers = EXCLUDED.include_papers,
                paper_categories = EXCLUDED.paper_categories,
                paper_max_results = EXCLUDED.paper_max_results,
                updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build schedule upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}

	return nil
}

// Get loads one user's schedule.
func (r *PostgresSchedules) Get(ctx context.Context, userID string) (domain.ScheduleConfig, error) {
	if r.db == nil {
		return domain.ScheduleConfig{}, domain.ErrScheduleNotFound
	}

	query, args, err := psql.
		Select("user_id", "hour", "minute", "enabled", "auto_tag", "skip_duplicates",
			"include_papers", "paper_categories", "paper_max_results", "updated_at").
		From("schedules").
		Where("user_id = ?", userID).
		ToSql()
	if err != nil {
		return domain.ScheduleConfig{}, fmt.Errorf("build schedule query: %w", err)
	}

	var cfg domain.ScheduleConfig
	var categories pq.StringArray
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&cfg.UserID, &cfg.Hour, &cfg.Minute, &cfg.Enabled, &cfg.AutoTag, &cfg.SkipDuplicates,
		&cfg.IncludePapers, &categories, &cfg.PaperMaxResults, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ScheduleConfig{}, domain.ErrScheduleNotFound
	}
	if err != nil {
		return domain.ScheduleConfig{}, fmt.Errorf("query schedule: %w", err)
	}
	cfg.PaperCategories = categories
	return cfg, nil
}

// Delete removes one user's schedule.
func (r *PostgresSchedules) Delete(ctx context.Context, userID string) error {
	if r.db == nil {
		return nil
	}

	query, args, err := psql.Delete("schedules").Where("user_id = ?", userID).ToSql()
	if err != nil {
		return fmt.Errorf("build schedule delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

// ListEnabled returns every schedule with the enabled flag set.
func (r *PostgresSchedules) ListEnabled(ctx context.Context) ([]domain.ScheduleConfig, error) {
	if r.db == nil {
		return nil, nil
	}

	query, args, err := psql.
		Select("user_id", "hour", "minute", "enabled", "auto_tag", "skip_duplicates",
			"include_papers", "paper_categories", "paper_max_results", "updated_at").
		From("schedules").
		Where("enabled = ?", true).
		OrderBy("user_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build schedules query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.ScheduleConfig
	for rows.Next() {
		var cfg domain.ScheduleConfig
		var categories pq.StringArray
		if err := rows.Scan(&cfg.UserID, &cfg.Hour, &cfg.Minute, &cfg.Enabled, &cfg.AutoTag,
			&cfg.SkipDuplicates, &cfg.IncludePapers, &categories, &cfg.PaperMaxResults, &cfg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		cfg.PaperCategories = categories
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
