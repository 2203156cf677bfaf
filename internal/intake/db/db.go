package db

import (
	"context"

	"ms-curation/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// InsertSubmission appends one raw submission to the bronze log. Rows are
// never updated or deleted afterwards.
func (d *DB) InsertSubmission(ctx context.Context, submission models.RawSubmission) error {
	_, err := d.Bun.NewInsert().Model(&submission).Exec(ctx)
	return err
}

// GetSubmissionByID fetches a single bronze record for lineage inspection.
func (d *DB) GetSubmissionByID(ctx context.Context, id string) (*models.RawSubmission, error) {
	var submission models.RawSubmission
	err := d.Bun.NewSelect().
		Model(&submission).
		Where("submission_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &submission, nil
}
