package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"linkwatch/internal/domain"
	"linkwatch/internal/repository"

	_ "modernc.org/sqlite"
)

var _ repository.TopologyStore = (*Repository)(nil)

// Repository implements repository.TopologyStore using SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; in-memory databases are per connection
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func dsn(path string) string {
	pragmas := "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if path == ":memory:" {
		return "file::memory:?" + pragmas
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + pragmas + "&_pragma=journal_mode(WAL)"
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS devices (
		name TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		address TEXT NOT NULL,
		username TEXT,
		password TEXT,
		transport TEXT,
		port INTEGER NOT NULL DEFAULT 0,
		ord INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS edges (
		id TEXT PRIMARY KEY,
		a TEXT NOT NULL,
		b TEXT NOT NULL,
		subnet TEXT,
		ord INTEGER NOT NULL,
		FOREIGN KEY (a) REFERENCES devices(name) ON DELETE CASCADE,
		FOREIGN KEY (b) REFERENCES devices(name) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS attachments (
		parent TEXT NOT NULL,
		child TEXT NOT NULL,
		ord INTEGER NOT NULL,
		PRIMARY KEY (parent, child),
		FOREIGN KEY (parent) REFERENCES devices(name) ON DELETE CASCADE,
		FOREIGN KEY (child) REFERENCES devices(name) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS uplinks (
		switch TEXT PRIMARY KEY,
		router TEXT NOT NULL,
		FOREIGN KEY (switch) REFERENCES devices(name) ON DELETE CASCADE,
		FOREIGN KEY (router) REFERENCES devices(name) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_edges_a ON edges(a);
	CREATE INDEX IF NOT EXISTS idx_edges_b ON edges(b);
	`

	_, err := r.db.Exec(schema)
	return err
}

// SaveTopology replaces all stored data with the provided topology
func (r *Repository) SaveTopology(ctx context.Context, topo *domain.Topology, source string) error {
	if err := topo.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Clear existing data (order matters due to foreign keys)
	for _, table := range []string{"uplinks", "attachments", "edges", "devices"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	devStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO devices (name, kind, address, username, password, transport, port, ord)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare device statement: %w", err)
	}
	defer devStmt.Close()

	for i, d := range topo.Devices {
		if _, err := devStmt.ExecContext(ctx, deviceInsertArgs(d, i)...); err != nil {
			return fmt.Errorf("failed to insert device %s: %w", d.Name, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (id, a, b, subnet, ord) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge statement: %w", err)
	}
	defer edgeStmt.Close()

	for i, e := range topo.Edges {
		if _, err := edgeStmt.ExecContext(ctx, string(e.ID), e.A, e.B, stringToNull(e.Subnet), i); err != nil {
			return fmt.Errorf("failed to insert edge %s: %w", e, err)
		}
	}

	attStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attachments (parent, child, ord) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare attachment statement: %w", err)
	}
	defer attStmt.Close()

	for parent, children := range topo.Attachments {
		for i, child := range children {
			if _, err := attStmt.ExecContext(ctx, parent, child, i); err != nil {
				return fmt.Errorf("failed to insert attachment %s/%s: %w", parent, child, err)
			}
		}
	}

	for sw, router := range topo.Uplinks {
		if _, err := tx.ExecContext(ctx, `INSERT INTO uplinks (switch, router) VALUES (?, ?)`, sw, router); err != nil {
			return fmt.Errorf("failed to insert uplink %s: %w", sw, err)
		}
	}

	if err := setMeta(ctx, tx, "source", source); err != nil {
		return err
	}
	if err := setMeta(ctx, tx, "saved_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadTopology reads the stored topology back in its original order
func (r *Repository) LoadTopology(ctx context.Context) (*domain.Topology, error) {
	topo := domain.NewTopology()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+deviceColumns+` FROM devices ORDER BY ord
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row deviceRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		d, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		topo.AddDevice(d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}
	if len(topo.Devices) == 0 {
		return nil, repository.ErrNoTopology
	}

	edgeRows, err := r.db.QueryContext(ctx, `SELECT a, b, subnet FROM edges ORDER BY ord`)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var a, b string
		var subnet sql.NullString
		if err := edgeRows.Scan(&a, &b, &subnet); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		topo.AddEdge(a, b, nullToString(subnet))
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	attRows, err := r.db.QueryContext(ctx, `SELECT parent, child FROM attachments ORDER BY parent, ord`)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer attRows.Close()

	for attRows.Next() {
		var parent, child string
		if err := attRows.Scan(&parent, &child); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		topo.Attach(parent, child)
	}
	if err := attRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachments: %w", err)
	}

	upRows, err := r.db.QueryContext(ctx, `SELECT switch, router FROM uplinks`)
	if err != nil {
		return nil, fmt.Errorf("failed to query uplinks: %w", err)
	}
	defer upRows.Close()

	for upRows.Next() {
		var sw, router string
		if err := upRows.Scan(&sw, &router); err != nil {
			return nil, fmt.Errorf("failed to scan uplink: %w", err)
		}
		topo.SetUplink(sw, router)
	}
	if err := upRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating uplinks: %w", err)
	}

	if err := topo.Validate(); err != nil {
		return nil, fmt.Errorf("stored topology: %w", err)
	}
	return topo, nil
}

// Info describes the stored topology
func (r *Repository) Info(ctx context.Context) (*repository.TopologyInfo, error) {
	info := &repository.TopologyInfo{}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&info.Devices); err != nil {
		return nil, fmt.Errorf("failed to count devices: %w", err)
	}
	if info.Devices == 0 {
		return nil, repository.ErrNoTopology
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&info.Edges); err != nil {
		return nil, fmt.Errorf("failed to count edges: %w", err)
	}

	source, err := r.getMeta(ctx, "source")
	if err != nil {
		return nil, err
	}
	info.Source = source

	savedAt, err := r.getMeta(ctx, "saved_at")
	if err != nil {
		return nil, err
	}
	if savedAt != "" {
		if t, err := time.Parse(time.RFC3339, savedAt); err == nil {
			info.SavedAt = t
		}
	}
	return info, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

func setMeta(ctx context.Context, tx *sql.Tx, key, value string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (r *Repository) getMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}
