package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/repositories"
)

// PostgresContentTypeRepository implements ContentTypeRepository using PostgreSQL
type PostgresContentTypeRepository struct {
	db *sql.DB
}

// NewPostgresContentTypeRepository creates a new PostgreSQL content type repository
func NewPostgresContentTypeRepository(db *sql.DB) repositories.ContentTypeRepository {
	return &PostgresContentTypeRepository{db: db}
}

// Create stores a new definition version and returns the version ID
func (r *PostgresContentTypeRepository) Create(ctx context.Context, source string) (string, error) {
	query := `
		INSERT INTO contenttype_versions (source, created_at)
		VALUES ($1, $2)
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, source, time.Now()).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to create content type version: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// GetLatestVersion retrieves the most recent definition version
func (r *PostgresContentTypeRepository) GetLatestVersion(ctx context.Context) (*entities.ContentTypeSet, error) {
	query := `
		SELECT id, source, created_at
		FROM contenttype_versions
		ORDER BY id DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query))
}

// GetByVersion retrieves a specific definition version
func (r *PostgresContentTypeRepository) GetByVersion(ctx context.Context, version string) (*entities.ContentTypeSet, error) {
	id, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid version %q", repositories.ErrContentTypesNotFound, version)
	}

	query := `
		SELECT id, source, created_at
		FROM contenttype_versions
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// Delete removes a definition version
func (r *PostgresContentTypeRepository) Delete(ctx context.Context, version string) error {
	id, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid version %q", repositories.ErrContentTypesNotFound, version)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM contenttype_versions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete content type version: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: version %s", repositories.ErrContentTypesNotFound, version)
	}

	return nil
}

func (r *PostgresContentTypeRepository) scanOne(row *sql.Row) (*entities.ContentTypeSet, error) {
	var id int64
	set := &entities.ContentTypeSet{}

	err := row.Scan(&id, &set.Source, &set.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, repositories.ErrContentTypesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content type version: %w", err)
	}

	set.Version = strconv.FormatInt(id, 10)
	return set, nil
}
