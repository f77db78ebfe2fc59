package pipeline

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, rec *Record) error {
	query := `INSERT INTO processed_items (identifier, analysis, sentiment, source_label, processed_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	return r.db.QueryRowContext(ctx, query, rec.Identifier, rec.Analysis, rec.Sentiment, rec.SourceLabel, rec.ProcessedAt).Scan(&rec.ID)
}

func (r *PostgresRepo) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT id, identifier, analysis, sentiment, source_label, processed_at FROM processed_items ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Identifier, &rec.Analysis, &rec.Sentiment, &rec.SourceLabel, &rec.ProcessedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM processed_items`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
