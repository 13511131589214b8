package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"menuiserie-report/internal/report/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrNotFound = errors.New("report not found")

// timeLayout фиксированной ширины, чтобы created_at сортировался как текст.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ============================================================
// SQLite Repository
// ============================================================

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Init применяет встроенные миграции в порядке имен.
func (r *Repository) Init(ctx context.Context) error {
	if err := r.runMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// Record сохраняет попытку генерации и возвращает запись с заполненными
// id и временем.
func (r *Repository) Record(ctx context.Context, entry models.ReportEntry) (*models.ReportEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO reports (id, ref_id, project, filename, size_bytes, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `,
		entry.ID,
		entry.RefID,
		entry.Project,
		entry.Filename,
		entry.SizeBytes,
		entry.Status,
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	return &entry, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.ReportEntry, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, ref_id, project, filename, size_bytes, status, created_at
        FROM reports
        WHERE id = ?
    `, id)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

// List возвращает последние записи, новые первыми.
func (r *Repository) List(ctx context.Context, limit int) ([]models.ReportEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, ref_id, project, filename, size_bytes, status, created_at
        FROM reports
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	entries := []models.ReportEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.ReportEntry, error) {
	var (
		e       models.ReportEntry
		created string
	)
	if err := s.Scan(&e.ID, &e.RefID, &e.Project, &e.Filename, &e.SizeBytes, &e.Status, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	e.CreatedAt = t
	return &e, nil
}

// ============================================================
// Migrations
// ============================================================

func (r *Repository) runMigrations(ctx context.Context) error {
	names, err := migrations.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Name() < names[j].Name() })

	for _, entry := range names {
		data, err := migrations.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// OpenSQLite открывает базу sqlite по пути dbPath, создавая каталог.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
