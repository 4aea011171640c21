// Package store persists published mapping sources so a schema can be
// restored on restart.
package store

import (
	"context"
	stderrors "errors"

	"SearchMapper/internal/models"
	"SearchMapper/pkg/errors"
	"SearchMapper/pkg/logger"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when a field has no persisted revision.
var ErrNotFound = stderrors.New("mapping revision not found")

// Store wraps a gorm handle holding mapping revisions.
type Store struct {
	db *gorm.DB
}

func createDatabaseInstance(cfg *gorm.Config, driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case "mysql":
		return gorm.Open(mysql.Open(dsn), cfg)
	case "pg", "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	case "", "sqlite":
	default:
		return nil, errors.Errorf("unsupported store driver [%s]", driver)
	}
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, err
	}
	// every sqlite connection to :memory: is its own database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Open connects to driver ("sqlite", "mysql", "pg") and migrates the schema.
// An empty sqlite dsn opens an in-memory database.
func Open(driver, dsn string) (*Store, error) {
	db, err := createDatabaseInstance(&gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}, driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open store [%s]", driver)
	}
	return New(db)
}

// New uses an existing gorm handle.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&models.MappingRevision{}); err != nil {
		return nil, errors.Wrap(err, "migrate mapping revisions")
	}
	return &Store{db: db}, nil
}

// SaveRevision appends source as the next revision of field.
func (s *Store) SaveRevision(ctx context.Context, field string, source []byte) (*models.MappingRevision, error) {
	rev, err := models.CreateRevision(s.db.WithContext(ctx), field, string(source))
	if err != nil {
		return nil, errors.Wrapf(err, "save revision of [%s]", field)
	}
	logger.Debug("mapping revision saved", zap.String("field", field), zap.Int("version", rev.Version))
	return rev, nil
}

// Latest returns the newest revision of field or ErrNotFound.
func (s *Store) Latest(ctx context.Context, field string) (*models.MappingRevision, error) {
	rev, err := models.GetLatestRevision(s.db.WithContext(ctx), field)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load revision of [%s]", field)
	}
	return rev, nil
}

// History returns every revision of field, oldest first.
func (s *Store) History(ctx context.Context, field string) ([]models.MappingRevision, error) {
	return models.GetRevisions(s.db.WithContext(ctx), field)
}

// Fields lists the names of every persisted field.
func (s *Store) Fields(ctx context.Context) ([]string, error) {
	return models.GetFieldNames(s.db.WithContext(ctx))
}

// Drop removes all revisions of field.
func (s *Store) Drop(ctx context.Context, field string) error {
	return models.DeleteRevisions(s.db.WithContext(ctx), field)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
