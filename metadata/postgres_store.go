package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store backed by PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed item store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Add inserts a new item into the database
func (s *PostgresStore) Add(ctx context.Context, item *Item) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM items WHERE id = $1)
	`, item.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check item existence: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrExists, item.ID)
	}

	authors, err := json.Marshal(item.Authors)
	if err != nil {
		return fmt.Errorf("failed to marshal authors: %w", err)
	}
	attributes, err := json.Marshal(item.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (id, title, subtitle, type, institution, published_year, authors, attributes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, item.ID, item.Title, item.Subtitle, item.Type, item.Institution, nullableYear(item.PublishedYear),
		authors, attributes, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}

	return nil
}

// Get retrieves an item by ID
func (s *PostgresStore) Get(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, subtitle, type, institution, published_year, authors, attributes, created_at, updated_at
		FROM items
		WHERE id = $1
	`, id)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// List returns a page of items ordered by creation time
func (s *PostgresStore) List(ctx context.Context, start, max int) ([]*Item, error) {
	if start < 0 {
		start = 0
	}
	var limit any
	if max > 0 {
		limit = max
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, subtitle, type, institution, published_year, authors, attributes, created_at, updated_at
		FROM items
		ORDER BY created_at ASC, id ASC
		LIMIT $1 OFFSET $2
	`, limit, start)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	items := []*Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

// Delete removes an item from the database
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item       Item
		published  sql.NullInt64
		authors    []byte
		attributes []byte
	)
	if err := row.Scan(&item.ID, &item.Title, &item.Subtitle, &item.Type, &item.Institution,
		&published, &authors, &attributes, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}

	if published.Valid {
		item.PublishedYear = Year(int(published.Int64))
	}
	if len(authors) > 0 {
		if err := json.Unmarshal(authors, &item.Authors); err != nil {
			return nil, fmt.Errorf("invalid authors for item %s: %w", item.ID, err)
		}
	}
	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &item.Attributes); err != nil {
			return nil, fmt.Errorf("invalid attributes for item %s: %w", item.ID, err)
		}
	}
	return &item, nil
}

func nullableYear(y *int) sql.NullInt64 {
	if y == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*y), Valid: true}
}
