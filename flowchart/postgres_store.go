package flowchart

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store backed by PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed flow chart store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Put deactivates the current version and inserts def as the next active one
func (s *PostgresStore) Put(ctx context.Context, def *Definition) (int, error) {
	if def.Jurisdiction == "" {
		return 0, fmt.Errorf("flow chart %s has no jurisdiction", def.ID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE flowcharts
		SET active = false
		WHERE jurisdiction = $1 AND active
	`, def.Jurisdiction)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate old flow charts: %w", err)
	}

	stored := clone(def)
	stored.Version = 0
	definition, err := json.Marshal(stored)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal flow chart: %w", err)
	}

	var version int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO flowcharts (jurisdiction, version, definition, active, created_at)
		SELECT $1, COALESCE(MAX(version), 0) + 1, $2, true, NOW()
		FROM flowcharts
		WHERE jurisdiction = $1
		RETURNING version
	`, def.Jurisdiction, definition).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to save flow chart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit flow chart: %w", err)
	}
	return version, nil
}

// Active returns the active definition of a jurisdiction
func (s *PostgresStore) Active(ctx context.Context, jurisdiction string) (*Definition, error) {
	var version int
	var definition []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT version, definition
		FROM flowcharts
		WHERE jurisdiction = $1 AND active
	`, jurisdiction).Scan(&version, &definition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jurisdiction)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flow chart: %w", err)
	}
	return decodeStored(definition, version)
}

// ListActive returns the active definitions ordered by jurisdiction
func (s *PostgresStore) ListActive(ctx context.Context) ([]*Definition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version, definition
		FROM flowcharts
		WHERE active
		ORDER BY jurisdiction
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list flow charts: %w", err)
	}
	defer rows.Close()

	var defs []*Definition
	for rows.Next() {
		var version int
		var definition []byte
		if err := rows.Scan(&version, &definition); err != nil {
			return nil, fmt.Errorf("failed to scan flow chart row: %w", err)
		}
		def, err := decodeStored(definition, version)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flow chart rows: %w", err)
	}
	return defs, nil
}

// Deactivate clears the active version of a jurisdiction. Older versions are kept.
func (s *PostgresStore) Deactivate(ctx context.Context, jurisdiction string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE flowcharts
		SET active = false
		WHERE jurisdiction = $1 AND active
	`, jurisdiction)
	if err != nil {
		return fmt.Errorf("failed to deactivate flow chart: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, jurisdiction)
	}
	return nil
}

func decodeStored(data []byte, version int) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("invalid stored flow chart: %w", err)
	}
	def.Version = version
	return &def, nil
}
