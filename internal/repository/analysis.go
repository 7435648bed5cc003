// Package repository persists analysis metadata in a sorted index keyed by
// (owner_id, analyzed_at). The timestamp is the sort key; the analysis id is
// a plain attribute, so id lookups go through the owner partition.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loomworks/careerlens/internal/domain"
)

type AnalysisRepository struct {
	pool *pgxpool.Pool
}

func NewAnalysisRepository(pool *pgxpool.Pool) *AnalysisRepository {
	return &AnalysisRepository{pool: pool}
}

// Put inserts a metadata record. The record is immutable once written.
func (r *AnalysisRepository) Put(ctx context.Context, rec *domain.AnalysisRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO analysis_records (owner_id, analyzed_at, analysis_id, original_file_name, target_role, resume_path, result_path)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.OwnerID, rec.AnalyzedAt, rec.AnalysisID, rec.OriginalFileName, rec.TargetRole, rec.ResumePath, rec.ResultPath,
	)
	return err
}

// QueryByOwner returns all of an owner's records, newest first.
// An owner with no records gets an empty slice, not an error.
func (r *AnalysisRepository) QueryByOwner(ctx context.Context, ownerID string) ([]*domain.AnalysisRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT owner_id, analyzed_at, analysis_id, original_file_name, target_role, resume_path, result_path
		 FROM analysis_records
		 WHERE owner_id = $1
		 ORDER BY analyzed_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

// QueryByOwnerBefore returns up to limit records older than the given
// timestamp, newest first. Used for cursor pagination; a zero before means
// "from the top".
func (r *AnalysisRepository) QueryByOwnerBefore(ctx context.Context, ownerID string, before int64, limit int) ([]*domain.AnalysisRecord, error) {
	if before <= 0 {
		rows, err := r.pool.Query(ctx,
			`SELECT owner_id, analyzed_at, analysis_id, original_file_name, target_role, resume_path, result_path
			 FROM analysis_records
			 WHERE owner_id = $1
			 ORDER BY analyzed_at DESC
			 LIMIT $2`,
			ownerID, limit,
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanRecords(rows)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT owner_id, analyzed_at, analysis_id, original_file_name, target_role, resume_path, result_path
		 FROM analysis_records
		 WHERE owner_id = $1 AND analyzed_at < $2
		 ORDER BY analyzed_at DESC
		 LIMIT $3`,
		ownerID, before, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Delete removes the record at the exact (owner, timestamp) key.
func (r *AnalysisRepository) Delete(ctx context.Context, ownerID string, analyzedAt int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM analysis_records WHERE owner_id = $1 AND analyzed_at = $2`,
		ownerID, analyzedAt,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows rowScanner) ([]*domain.AnalysisRecord, error) {
	records := make([]*domain.AnalysisRecord, 0)
	for rows.Next() {
		var rec domain.AnalysisRecord
		if err := rows.Scan(&rec.OwnerID, &rec.AnalyzedAt, &rec.AnalysisID, &rec.OriginalFileName, &rec.TargetRole, &rec.ResumePath, &rec.ResultPath); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
