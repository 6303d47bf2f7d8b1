// Package history persists scan runs so successive runs of the same
// image list can be compared later. Local history goes to sqlite; shared
// history to postgres via a DSN.
package history

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avareg/quickscan/pkg/types"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open opens a database connection for the given driver and DSN. For
// sqlite the DSN is a file path.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("error opening %s database: %w", driver, err)
	}
	return db, nil
}

// Manager stores and retrieves scan runs.
type Manager struct {
	db *gorm.DB
}

// NewManager creates a Manager and migrates the schema.
func NewManager(db *gorm.DB) (*Manager, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.AutoMigrate(&ScanRun{}, &CheckRow{}, &DetailRow{}); err != nil {
		return nil, fmt.Errorf("error migrating schema: %w", err)
	}
	return &Manager{db: db}, nil
}

// InsertRun persists one aggregate result and returns the stored run.
func (m *Manager) InsertRun(ctx context.Context, agg *types.AggregateResult) (*ScanRun, error) {
	run := newScanRun(agg)
	if err := m.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("error inserting scan run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recent run with its rows, or an error when
// none exist.
func (m *Manager) LatestRun(ctx context.Context) (*ScanRun, error) {
	var run ScanRun
	err := m.db.WithContext(ctx).
		Preload("Rows").
		Preload("DetailedRows").
		Order("id DESC").
		First(&run).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching latest scan run: %w", err)
	}
	return &run, nil
}
