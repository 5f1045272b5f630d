package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/LoneMenace/cinesense/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ReviewRepository handles review storage
type ReviewRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	now    func() time.Time
}

type reviewRow struct {
	ID         int64           `db:"id"`
	Text       sql.NullString  `db:"review_text"`
	Sentiment  sql.NullString  `db:"sentiment"`
	Confidence sql.NullFloat64 `db:"confidence"`
	CreatedAt  sql.NullString  `db:"created_at"`
}

// NewReviewRepository opens the SQLite file and ensures the schema exists
func NewReviewRepository(dbPath string, logger *zap.Logger) (*ReviewRepository, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// All callers share one connection; SQLite serializes access to it.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &ReviewRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}

	if err := repo.CreateSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Review repository initialized", zap.String("db_path", dbPath))

	return repo, nil
}

// CreateSchema applies the embedded migrations. Running it again is a no-op.
func (r *ReviewRepository) CreateSchema() error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(r.db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to get database instance for migrations: %w", err)
	}

	// The migrate instance is not closed: that would close the shared *sql.DB.
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Insert stores a new review with the current timestamp
func (r *ReviewRepository) Insert(ctx context.Context, text, sentiment string, confidence float64) error {
	query := `
		INSERT INTO reviews (review_text, sentiment, confidence, created_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query, text, sentiment, confidence, r.now().Format(models.TimestampLayout))
	if err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		r.logger.Debug("Review saved", zap.Int64("id", id), zap.String("sentiment", sentiment))
	}

	return nil
}

// FetchRecent returns up to limit reviews, newest first
func (r *ReviewRepository) FetchRecent(ctx context.Context, limit int) ([]*models.ReviewRecord, error) {
	records := []*models.ReviewRecord{}
	if limit <= 0 {
		return records, nil
	}

	query := `
		SELECT id, review_text, sentiment, confidence, created_at
		FROM reviews
		ORDER BY id DESC
		LIMIT ?
	`

	var rows []reviewRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}

	for _, row := range rows {
		rec := &models.ReviewRecord{
			ID:         row.ID,
			Text:       row.Text.String,
			Sentiment:  row.Sentiment.String,
			Confidence: row.Confidence.Float64,
		}
		if row.CreatedAt.Valid {
			ts, err := time.ParseInLocation(models.TimestampLayout, row.CreatedAt.String, time.Local)
			if err != nil {
				r.logger.Warn("Failed to parse review timestamp",
					zap.Int64("id", row.ID),
					zap.String("created_at", row.CreatedAt.String),
					zap.Error(err))
			} else {
				rec.CreatedAt = ts
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

// Delete removes a review and reports whether a row was removed.
// Deleting an unknown id is not an error.
func (r *ReviewRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete review: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		r.logger.Debug("Review to delete not found", zap.Int64("id", id))
	}

	return n > 0, nil
}

// Stats returns review counts and the mean confidence
func (r *ReviewRepository) Stats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{BySentiment: make(map[string]int)}

	var avg sql.NullFloat64
	err := r.db.QueryRowxContext(ctx, `SELECT COUNT(*), AVG(confidence) FROM reviews`).Scan(&stats.Total, &avg)
	if err != nil {
		return nil, fmt.Errorf("failed to count reviews: %w", err)
	}
	stats.AverageConfidence = avg.Float64

	var groups []struct {
		Sentiment sql.NullString `db:"sentiment"`
		Count     int            `db:"count"`
	}
	query := `
		SELECT sentiment, COUNT(*) AS count
		FROM reviews
		GROUP BY sentiment
		ORDER BY sentiment
	`
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("failed to group reviews: %w", err)
	}
	for _, g := range groups {
		stats.BySentiment[g.Sentiment.String] = g.Count
	}

	return stats, nil
}

// Close closes the database connection
func (r *ReviewRepository) Close() error {
	return r.db.Close()
}
