package docstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// entry is the row shape shared by every document in the SQLite database.
type entry struct {
	Document   string `gorm:"primaryKey;size:64"`
	EntryKey   string `gorm:"primaryKey;size:255"`
	EntryValue string `gorm:"not null"`
	UpdatedAt  time.Time
}

func (entry) TableName() string { return entriesTable }

// SQLiteDB owns one SQLite database file holding any number of documents.
// All documents opened from it share a single connection and one mutex.
type SQLiteDB struct {
	db *gorm.DB
	mu sync.Mutex
}

// OpenSQLite opens (creating if needed) the database at path and migrates the entries table.
func OpenSQLite(path string) (*SQLiteDB, error) {
	if path == "" {
		return nil, errors.New("docstore: empty sqlite path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&entry{}); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &SQLiteDB{db: db}, nil
}

// Document returns a handle for the named document.
func (s *SQLiteDB) Document(name string) (*SQLiteDocument, error) {
	if !validName(name) {
		return nil, ErrInvalidName
	}
	return &SQLiteDocument{name: name, owner: s}, nil
}

// Ping checks the underlying connection.
func (s *SQLiteDB) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteDB) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLiteDocument is a Document stored in an SQLiteDB.
type SQLiteDocument struct {
	name  string
	owner *SQLiteDB
}

func (d *SQLiteDocument) Name() string { return d.name }

func (d *SQLiteDocument) scope(ctx context.Context) *gorm.DB {
	return d.owner.db.WithContext(ctx).Model(&entry{}).Where("document = ?", d.name)
}

func (d *SQLiteDocument) Get(ctx context.Context, key string) (string, bool, error) {
	d.owner.mu.Lock()
	defer d.owner.mu.Unlock()

	var e entry
	err := d.scope(ctx).Where("entry_key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, opErr(d.name, "get", err)
	}
	return e.EntryValue, true, nil
}

func (d *SQLiteDocument) Insert(ctx context.Context, key, value string) error {
	d.owner.mu.Lock()
	defer d.owner.mu.Unlock()

	res := d.owner.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry{Document: d.name, EntryKey: key, EntryValue: value, UpdatedAt: time.Now().UTC()})
	if res.Error != nil {
		return opErr(d.name, "insert", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrExists
	}
	return nil
}

func (d *SQLiteDocument) Put(ctx context.Context, key, value string) (string, bool, error) {
	d.owner.mu.Lock()
	defer d.owner.mu.Unlock()

	var (
		prev string
		had  bool
	)
	err := d.owner.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e entry
		err := tx.Where("document = ? AND entry_key = ?", d.name, key).Take(&e).Error
		switch {
		case err == nil:
			prev, had = e.EntryValue, true
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "document"}, {Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"entry_value", "updated_at"}),
		}).Create(&entry{Document: d.name, EntryKey: key, EntryValue: value, UpdatedAt: time.Now().UTC()}).Error
	})
	if err != nil {
		return "", false, opErr(d.name, "put", err)
	}
	return prev, had, nil
}

func (d *SQLiteDocument) CompareAndSwap(ctx context.Context, key, old, value string) (bool, error) {
	d.owner.mu.Lock()
	defer d.owner.mu.Unlock()

	res := d.scope(ctx).
		Where("entry_key = ? AND entry_value = ?", key, old).
		Updates(map[string]any{"entry_value": value, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, opErr(d.name, "cas", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (d *SQLiteDocument) Delete(ctx context.Context, key string) (bool, error) {
	d.owner.mu.Lock()
	defer d.owner.mu.Unlock()

	res := d.owner.db.WithContext(ctx).
		Where("document = ? AND entry_key = ?", d.name, key).
		Delete(&entry{})
	if res.Error != nil {
		return false, opErr(d.name, "delete", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (d *SQLiteDocument) DeleteIf(ctx context.Context, key, value string) (bool, error) {
	d.owner.mu.Lock()
	defer d.owner.mu.Unlock()

	res := d.owner.db.WithContext(ctx).
		Where("document = ? AND entry_key = ? AND entry_value = ?", d.name, key, value).
		Delete(&entry{})
	if res.Error != nil {
		return false, opErr(d.name, "delete_if", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (d *SQLiteDocument) Len(ctx context.Context) (int, error) {
	d.owner.mu.Lock()
	defer d.owner.mu.Unlock()

	var n int64
	if err := d.scope(ctx).Count(&n).Error; err != nil {
		return 0, opErr(d.name, "len", err)
	}
	return int(n), nil
}

func (d *SQLiteDocument) Snapshot(ctx context.Context) (map[string]string, error) {
	d.owner.mu.Lock()
	defer d.owner.mu.Unlock()

	var rows []entry
	if err := d.owner.db.WithContext(ctx).Where("document = ?", d.name).Find(&rows).Error; err != nil {
		return nil, opErr(d.name, "snapshot", err)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.EntryKey] = r.EntryValue
	}
	return out, nil
}

// Ping checks the shared connection.
func (d *SQLiteDocument) Ping(ctx context.Context) error {
	return d.owner.Ping(ctx)
}
