package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/smukkama/openweather-panel/internal/location"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Connect establishes a connection to the database
func Connect(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	return &DB{db}, nil
}

// RunMigrations executes the embedded SQL migrations in file name order
func (db *DB) RunMigrations(ctx context.Context) error {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(files)

	for _, filename := range files {
		log.Printf("Running migration: %s", filename)

		content, err := migrations.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}
	return nil
}

// LocationStore keeps the location list in the locations table and the
// active index in settings
type LocationStore struct {
	db *DB
}

// NewLocationStore creates a PostgreSQL-backed location store
func NewLocationStore(db *DB) *LocationStore {
	return &LocationStore{db: db}
}

// Load reads all locations ordered by position
func (s *LocationStore) Load(ctx context.Context) (location.List, error) {
	query := `
		SELECT position, latitude, longitude, name, provider, updated_at
		FROM locations
		ORDER BY position
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return location.List{}, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var list location.List
	for rows.Next() {
		var r LocationRow
		if err := rows.Scan(
			&r.Position,
			&r.Latitude,
			&r.Longitude,
			&r.Name,
			&r.Provider,
			&r.UpdatedAt,
		); err != nil {
			return location.List{}, fmt.Errorf("failed to scan location: %w", err)
		}
		list.Add(r.Location())
	}
	if err := rows.Err(); err != nil {
		return location.List{}, err
	}

	active, err := s.activeIndex(ctx)
	if err != nil {
		return location.List{}, err
	}
	list.SetActive(active)
	return list, nil
}

func (s *LocationStore) activeIndex(ctx context.Context) (int, error) {
	query := `SELECT value FROM settings WHERE key = $1`

	var value string
	err := s.db.QueryRowContext(ctx, query, SettingActiveLocation).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query active location: %w", err)
	}

	active, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Printf("Ignoring malformed active location %q", value)
		return 0, nil
	}
	return active, nil
}

// Save replaces the stored list in a single transaction. Invalid entries
// are not persisted.
func (s *LocationStore) Save(ctx context.Context, list location.List) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM locations`); err != nil {
		return fmt.Errorf("failed to clear locations: %w", err)
	}

	insert := `
		INSERT INTO locations (position, latitude, longitude, name, provider)
		VALUES ($1, $2, $3, $4, $5)
	`
	position := 0
	for _, loc := range list.Locations {
		if loc.Invalid {
			continue
		}
		if _, err := tx.ExecContext(ctx, insert,
			position,
			loc.Latitude,
			loc.Longitude,
			loc.Name,
			loc.Provider,
		); err != nil {
			return fmt.Errorf("failed to insert location %d: %w", position, err)
		}
		position++
	}

	active := list.Active
	if active < 0 || active >= position {
		active = 0
	}
	upsert := `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = CURRENT_TIMESTAMP
	`
	if _, err := tx.ExecContext(ctx, upsert, SettingActiveLocation, strconv.Itoa(active)); err != nil {
		return fmt.Errorf("failed to save active location: %w", err)
	}

	return tx.Commit()
}

var _ location.Store = (*LocationStore)(nil)
