package client

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"storesync/internal/domain/credential"
)

// SQLiteStorage caches store listings and import state locally so the CLI
// can show something useful when the server is unreachable.
type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init local cache: %w", err)
	}
	return storage, nil
}

func (s *SQLiteStorage) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS stores (
			id TEXT PRIMARY KEY,
			store_name TEXT NOT NULL,
			platform TEXT NOT NULL,
			cached_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS import_state (
			store_id TEXT PRIMARY KEY,
			job_id TEXT NOT NULL,
			status TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`)
	return err
}

func (s *SQLiteStorage) SaveStores(stores []*credential.StoreConnection) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM stores`); err != nil {
		return err
	}
	for _, store := range stores {
		if _, err := tx.Exec(
			`INSERT INTO stores (id, store_name, platform, cached_at) VALUES (?, ?, ?, ?)`,
			store.ID, store.StoreName, store.Platform, time.Now(),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStorage) ListStores() ([]*credential.StoreConnection, error) {
	rows, err := s.db.Query(`SELECT id, store_name, platform FROM stores ORDER BY store_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stores []*credential.StoreConnection
	for rows.Next() {
		var store credential.StoreConnection
		if err := rows.Scan(&store.ID, &store.StoreName, &store.Platform); err != nil {
			return nil, err
		}
		stores = append(stores, &store)
	}
	return stores, rows.Err()
}

// SaveImportState remembers the active import job per store so a later
// `sync import` can resume it by id.
func (s *SQLiteStorage) SaveImportState(storeID, jobID, status string) error {
	_, err := s.db.Exec(`
		INSERT INTO import_state (store_id, job_id, status, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (store_id) DO UPDATE SET
			job_id = excluded.job_id,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, storeID, jobID, status, time.Now())
	return err
}

func (s *SQLiteStorage) ImportState(storeID string) (jobID, status string, err error) {
	err = s.db.QueryRow(
		`SELECT job_id, status FROM import_state WHERE store_id = ?`, storeID,
	).Scan(&jobID, &status)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	return jobID, status, err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
