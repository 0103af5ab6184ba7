package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asakaida/contentkit/internal/entities"
	"github.com/asakaida/contentkit/internal/repositories"
	"github.com/lib/pq"
)

// PostgresRelationRepository implements RelationRepository using PostgreSQL
type PostgresRelationRepository struct {
	db *sql.DB
}

// NewPostgresRelationRepository creates a new PostgreSQL relation repository
func NewPostgresRelationRepository(db *sql.DB) repositories.RelationRepository {
	return &PostgresRelationRepository{db: db}
}

// Read retrieves relations matching the filter ordered by sortorder
func (r *PostgresRelationRepository) Read(ctx context.Context, filter *repositories.RelationFilter) ([]*entities.Relation, error) {
	query := `
		SELECT id, from_contenttype, from_id, to_contenttype, to_id, sortorder
		FROM relations
		WHERE 1 = 1
	`
	where, args := filterClause(filter)
	query += where + " ORDER BY sortorder, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read relations: %w", err)
	}
	defer rows.Close()

	var relations []*entities.Relation
	for rows.Next() {
		var rel entities.Relation
		err := rows.Scan(
			&rel.ID, &rel.FromContenttype, &rel.FromID,
			&rel.ToContenttype, &rel.ToID, &rel.Sortorder,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		relations = append(relations, &rel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relations: %w", err)
	}

	return relations, nil
}

// BatchWrite stores multiple relations in a single transaction
func (r *PostgresRelationRepository) BatchWrite(ctx context.Context, relations []*entities.Relation) error {
	if len(relations) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO relations (from_contenttype, from_id, to_contenttype, to_id, sortorder)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (from_contenttype, from_id, to_contenttype, to_id)
		DO UPDATE SET sortorder = EXCLUDED.sortorder
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rel := range relations {
		if err := rel.Validate(); err != nil {
			return fmt.Errorf("invalid relation: %w", err)
		}

		_, err := stmt.ExecContext(ctx,
			rel.FromContenttype, rel.FromID, rel.ToContenttype, rel.ToID, rel.Sortorder,
		)
		if err != nil {
			return fmt.Errorf("failed to write relation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// BatchDelete removes multiple relations in a single transaction
func (r *PostgresRelationRepository) BatchDelete(ctx context.Context, relations []*entities.Relation) error {
	if len(relations) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		DELETE FROM relations
		WHERE from_contenttype = $1
			AND from_id = $2
			AND to_contenttype = $3
			AND to_id = $4
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rel := range relations {
		if err := rel.Validate(); err != nil {
			return fmt.Errorf("invalid relation: %w", err)
		}

		_, err := stmt.ExecContext(ctx, rel.FromContenttype, rel.FromID, rel.ToContenttype, rel.ToID)
		if err != nil {
			return fmt.Errorf("failed to delete relation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteByFilter removes relations matching the filter.
// An empty filter is rejected so a mistake cannot wipe the table.
func (r *PostgresRelationRepository) DeleteByFilter(ctx context.Context, filter *repositories.RelationFilter) error {
	where, args := filterClause(filter)
	if len(args) == 0 {
		return fmt.Errorf("filter is required")
	}

	_, err := r.db.ExecContext(ctx, "DELETE FROM relations WHERE 1 = 1"+where, args...)
	if err != nil {
		return fmt.Errorf("failed to delete relations by filter: %w", err)
	}

	return nil
}

// filterClause builds the AND conditions of a filter, numbering placeholders from $1
func filterClause(filter *repositories.RelationFilter) (string, []interface{}) {
	var query string
	var args []interface{}
	if filter == nil {
		return query, args
	}

	argIdx := 1
	add := func(condition string, value interface{}) {
		query += fmt.Sprintf(" AND "+condition, argIdx)
		args = append(args, value)
		argIdx++
	}

	if filter.FromContenttype != "" {
		add("from_contenttype = $%d", filter.FromContenttype)
	}
	if len(filter.FromIDs) > 0 {
		add("from_id = ANY($%d)", pq.Array(filter.FromIDs))
	} else if filter.FromID != "" {
		add("from_id = $%d", filter.FromID)
	}
	if filter.ToContenttype != "" {
		add("to_contenttype = $%d", filter.ToContenttype)
	}
	if len(filter.ToIDs) > 0 {
		add("to_id = ANY($%d)", pq.Array(filter.ToIDs))
	} else if filter.ToID != "" {
		add("to_id = $%d", filter.ToID)
	}

	return query, args
}
