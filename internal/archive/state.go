// Package archive downloads mailboxes through the IMAP client and stores raw
// messages in blob storage, tracking sync state in SQLite. Messages are
// never deleted or flagged on the server.
package archive

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// StateDB records which UIDs have been archived per account and folder.
type StateDB struct {
	db *sql.DB
}

// OpenState opens or creates the sync state database.
func OpenState(path string) (*StateDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS folders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id TEXT NOT NULL,
			name TEXT NOT NULL,
			uidvalidity INTEGER NOT NULL DEFAULT 0,
			UNIQUE(account_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS synced_messages (
			folder_id INTEGER NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
			uid INTEGER NOT NULL,
			blob_key TEXT NOT NULL,
			synced_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (folder_id, uid)
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create state schema: %w", err)
		}
	}

	return &StateDB{db: db}, nil
}

// Close closes the underlying database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// EnsureFolder returns the folder row id for (account, name), creating it if
// needed. A changed UIDVALIDITY means the server presented a fresh mailbox
// identity: cached UIDs are dropped and reset reports true.
func (s *StateDB) EnsureFolder(accountID, name string, uidValidity uint32) (int64, bool, error) {
	var id int64
	var stored uint32
	err := s.db.QueryRow(`
		SELECT id, uidvalidity FROM folders
		WHERE account_id = ? AND name = ?
	`, accountID, name).Scan(&id, &stored)

	if err == sql.ErrNoRows {
		res, err := s.db.Exec(`
			INSERT INTO folders (account_id, name, uidvalidity) VALUES (?, ?, ?)
		`, accountID, name, uidValidity)
		if err != nil {
			return 0, false, err
		}
		id, err = res.LastInsertId()
		return id, false, err
	}
	if err != nil {
		return 0, false, err
	}

	if stored != uidValidity {
		if _, err := s.db.Exec(`DELETE FROM synced_messages WHERE folder_id = ?`, id); err != nil {
			return 0, false, err
		}
		if _, err := s.db.Exec(`UPDATE folders SET uidvalidity = ? WHERE id = ?`, uidValidity, id); err != nil {
			return 0, false, err
		}
		return id, true, nil
	}

	return id, false, nil
}

// SyncedUIDs returns the set of already-archived UIDs for a folder.
func (s *StateDB) SyncedUIDs(folderID int64) (map[uint32]bool, error) {
	rows, err := s.db.Query(`SELECT uid FROM synced_messages WHERE folder_id = ?`, folderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	uids := make(map[uint32]bool)
	for rows.Next() {
		var uid uint32
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		uids[uid] = true
	}
	return uids, rows.Err()
}

// MarkSynced records one archived message.
func (s *StateDB) MarkSynced(folderID int64, uid uint32, blobKey string) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO synced_messages (folder_id, uid, blob_key) VALUES (?, ?, ?)
	`, folderID, uid, blobKey)
	return err
}
