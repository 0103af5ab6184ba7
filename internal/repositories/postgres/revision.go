package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Revision identifies the PostgreSQL transaction that committed a write.
// Format: "xmin:xmax:xip1,xip2,..." as returned by txid_current_snapshot().
type Revision struct {
	// Xmin is the earliest transaction ID that was still active
	Xmin int64

	// Xmax is the first transaction ID not yet assigned
	Xmax int64

	// Xip is the list of transaction IDs that were in progress
	Xip []int64
}

// String returns the revision token
func (r *Revision) String() string {
	if len(r.Xip) == 0 {
		return fmt.Sprintf("%d:%d:", r.Xmin, r.Xmax)
	}

	xipStrs := make([]string, len(r.Xip))
	for i, xid := range r.Xip {
		xipStrs[i] = strconv.FormatInt(xid, 10)
	}

	return fmt.Sprintf("%d:%d:%s", r.Xmin, r.Xmax, strings.Join(xipStrs, ","))
}

// ParseRevision parses a revision token
func ParseRevision(token string) (*Revision, error) {
	if token == "" {
		return nil, fmt.Errorf("empty revision")
	}

	parts := strings.Split(token, ":")
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid revision format: %s", token)
	}

	xmin, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid xmin in revision: %w", err)
	}

	xmax, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid xmax in revision: %w", err)
	}

	var xip []int64
	if len(parts) > 2 && parts[2] != "" {
		xipStrs := strings.Split(parts[2], ",")
		xip = make([]int64, 0, len(xipStrs))
		for _, xipStr := range xipStrs {
			xid, err := strconv.ParseInt(xipStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid xip in revision: %w", err)
			}
			xip = append(xip, xid)
		}
	}

	return &Revision{Xmin: xmin, Xmax: xmax, Xip: xip}, nil
}

// Includes reports whether the transaction xid had committed when the revision was taken
func (r *Revision) Includes(xid int64) bool {
	if xid >= r.Xmax {
		return false
	}
	if xid < r.Xmin {
		return true
	}
	for _, inProgress := range r.Xip {
		if xid == inProgress {
			return false
		}
	}
	return true
}

// RevisionManager issues revisions for writes
type RevisionManager struct {
	db *sql.DB
}

// NewRevisionManager creates a new revision manager
func NewRevisionManager(db *sql.DB) *RevisionManager {
	return &RevisionManager{db: db}
}

// GenerateWriteRevision returns the revision a transaction commits as.
// It must be called inside the writing transaction.
func (m *RevisionManager) GenerateWriteRevision(ctx context.Context, tx *sql.Tx) (string, error) {
	var txid int64
	err := tx.QueryRowContext(ctx, "SELECT txid_current()").Scan(&txid)
	if err != nil {
		return "", fmt.Errorf("failed to get current transaction ID: %w", err)
	}

	revision := &Revision{Xmin: txid, Xmax: txid + 1}
	return revision.String(), nil
}

// Current returns the revision visible to new reads
func (m *RevisionManager) Current(ctx context.Context) (*Revision, error) {
	var snapshot string
	err := m.db.QueryRowContext(ctx, "SELECT txid_current_snapshot()::text").Scan(&snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to get current snapshot: %w", err)
	}
	return ParseRevision(snapshot)
}
