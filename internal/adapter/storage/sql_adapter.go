package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rl1809/stock-tracker/internal/core/domain"
	"github.com/rl1809/stock-tracker/internal/port"
)

type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS inventory_snapshots (
		name     VARCHAR(255) PRIMARY KEY,
		saved_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_snapshot_items (
		snapshot_name VARCHAR(255) NOT NULL,
		seq           INT NOT NULL,
		item_id       VARCHAR(255) NOT NULL,
		quantity      BIGINT NOT NULL,
		PRIMARY KEY (snapshot_name, seq)
	)`,
}

// SQLAdapter stores snapshots as rows in MySQL or PostgreSQL. Queries are
// written with ? placeholders and rebound for the dialect.
type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLAdapter(db *sql.DB, dialect Dialect) *SQLAdapter {
	return &SQLAdapter{db: db, dialect: dialect}
}

// Migrate creates the snapshot tables if they do not exist yet.
func (s *SQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLAdapter) Load(ctx context.Context, name string) (domain.Snapshot, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT COUNT(*) FROM inventory_snapshots WHERE name = ?`), name,
	).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %s", port.ErrSnapshotNotFound, name)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT item_id, quantity
		FROM inventory_snapshot_items
		WHERE snapshot_name = ?
		ORDER BY seq`), name,
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshot items: %w", err)
	}
	defer rows.Close()

	snapshot := domain.Snapshot{}
	for rows.Next() {
		var lvl domain.StockLevel
		if err := rows.Scan(&lvl.Item, &lvl.Quantity); err != nil {
			return nil, fmt.Errorf("scan snapshot item: %w", err)
		}
		snapshot = append(snapshot, lvl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot items: %w", err)
	}

	return snapshot, nil
}

func (s *SQLAdapter) Save(ctx context.Context, name string, snapshot domain.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`
		DELETE FROM inventory_snapshot_items WHERE snapshot_name = ?`), name,
	); err != nil {
		return fmt.Errorf("clear snapshot items: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`
		DELETE FROM inventory_snapshots WHERE name = ?`), name,
	); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`
		INSERT INTO inventory_snapshots (name, saved_at) VALUES (?, ?)`),
		name, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO inventory_snapshot_items (snapshot_name, seq, item_id, quantity)
		VALUES (?, ?, ?, ?)`),
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, lvl := range snapshot {
		if _, err := stmt.ExecContext(ctx, name, i, lvl.Item, lvl.Quantity); err != nil {
			return fmt.Errorf("insert snapshot item %s: %w", lvl.Item, err)
		}
	}

	return tx.Commit()
}

func (s *SQLAdapter) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM inventory_snapshot_items WHERE snapshot_name = ?`), name); err != nil {
		return fmt.Errorf("delete snapshot items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM inventory_snapshots WHERE name = ?`), name); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return tx.Commit()
}

// rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func (s *SQLAdapter) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
