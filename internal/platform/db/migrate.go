package db

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	tern "github.com/jackc/tern/v2/migrate"
)

// DefaultVersionTable records the applied schema version.
const DefaultVersionTable = "schema_version"

// MigrationStatus represents the status of a migration (applied or pending).
type MigrationStatus struct {
	Version int32
	Name    string
	Applied bool
}

// Migrator applies the numbered SQL files found in fsys using tern.
type Migrator struct {
	fsys         fs.FS
	versionTable string
}

// NewMigrator creates a Migrator over fsys. An empty versionTable selects
// DefaultVersionTable.
func NewMigrator(fsys fs.FS, versionTable string) *Migrator {
	if versionTable == "" {
		versionTable = DefaultVersionTable
	}
	return &Migrator{fsys: fsys, versionTable: versionTable}
}

func (m *Migrator) load(ctx context.Context, conn *pgx.Conn) (*tern.Migrator, error) {
	tm, err := tern.NewMigrator(ctx, conn, m.versionTable)
	if err != nil {
		return nil, fmt.Errorf("construct migrator: %w", err)
	}
	if err := tm.LoadMigrations(m.fsys); err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	return tm, nil
}

// Up applies every pending migration and reports the version before and
// after.
func (m *Migrator) Up(ctx context.Context, conn *pgx.Conn) (from, to int32, err error) {
	tm, err := m.load(ctx, conn)
	if err != nil {
		return 0, 0, err
	}

	from, err = tm.GetCurrentVersion(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("read current version: %w", err)
	}

	if err := tm.Migrate(ctx); err != nil {
		return from, 0, fmt.Errorf("apply migrations: %w", err)
	}

	return from, int32(len(tm.Migrations)), nil
}

// Status lists every known migration and whether it has been applied.
func (m *Migrator) Status(ctx context.Context, conn *pgx.Conn) ([]MigrationStatus, error) {
	tm, err := m.load(ctx, conn)
	if err != nil {
		return nil, err
	}

	current, err := tm.GetCurrentVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("read current version: %w", err)
	}

	return statusOf(tm.Migrations, current), nil
}

func statusOf(migrations []*tern.Migration, current int32) []MigrationStatus {
	out := make([]MigrationStatus, 0, len(migrations))
	for _, mig := range migrations {
		out = append(out, MigrationStatus{
			Version: mig.Sequence,
			Name:    mig.Name,
			Applied: mig.Sequence <= current,
		})
	}
	return out
}
