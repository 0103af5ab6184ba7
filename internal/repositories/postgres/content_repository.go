package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/asakaida/contentkit/internal/repositories"
	"github.com/asakaida/contentkit/internal/storage"
)

// PostgresContentRepository implements ContentRepository using PostgreSQL
type PostgresContentRepository struct {
	db        *sql.DB
	revisions *RevisionManager
}

// NewPostgresContentRepository creates a new PostgreSQL content repository
func NewPostgresContentRepository(db *sql.DB) repositories.ContentRepository {
	return &PostgresContentRepository{db: db, revisions: NewRevisionManager(db)}
}

// Query runs a record query and returns the raw rows
func (r *PostgresContentRepository) Query(ctx context.Context, query *storage.Query) ([]storage.Row, error) {
	sqlText, args := query.SQL()

	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", query.Table(), err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var result []storage.Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(storage.Row, len(columns))
		for i, column := range columns {
			// lib/pq returns text and json columns as []byte
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
				continue
			}
			row[column] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// Execute runs all queued writes in a single transaction.
// Any failure rolls the whole set back. The returned revision identifies the commit.
func (r *PostgresContentRepository) Execute(ctx context.Context, queue *storage.QuerySet) (string, error) {
	if queue == nil || queue.Len() == 0 {
		return "", nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, op := range queue.Operations() {
		sqlText, args, err := op.SQL()
		if err != nil {
			return "", fmt.Errorf("invalid operation %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, sqlText, args...); err != nil {
			return "", fmt.Errorf("failed to execute %s on %s: %w", op.Kind, op.Table, err)
		}
	}

	revision, err := r.revisions.GenerateWriteRevision(ctx, tx)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return revision, nil
}

// NextID reserves the ID of a new record
func (r *PostgresContentRepository) NextID(ctx context.Context) (string, error) {
	var id int64
	if err := r.db.QueryRowContext(ctx, "SELECT nextval('contents_id_seq')").Scan(&id); err != nil {
		return "", fmt.Errorf("failed to reserve content ID: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// Delete removes a record with its field values and relations from or to it
func (r *PostgresContentRepository) Delete(ctx context.Context, contenttype, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM relations
		WHERE (from_contenttype = $1 AND from_id = $2)
			OR (to_contenttype = $1 AND to_id = $2)
	`, contenttype, id)
	if err != nil {
		return fmt.Errorf("failed to delete relations: %w", err)
	}

	// content_fields rows go with the record (ON DELETE CASCADE)
	result, err := tx.ExecContext(ctx, `DELETE FROM contents WHERE contenttype = $1 AND id = $2`, contenttype, id)
	if err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s:%s", storage.ErrNotFound, contenttype, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
