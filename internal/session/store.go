// Package session persists crash-recovery state: a session.json
// listing the open tabs and a buffers/ directory holding the content
// of every unsaved document. After a crash the leftover snapshots are
// offered for recovery; an explicit save or clean close removes them.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	sessionFileName = "session.json"
	buffersDirName  = "buffers"
	bufferExt       = ".txt"
)

// TabEntry is one open tab in the session file. Entries for unsaved
// documents carry a BufferID pointing at buffers/<id>.txt; clean
// path-backed tabs carry only their path.
type TabEntry struct {
	Path         string    `json:"filepath,omitempty"`
	Title        string    `json:"title,omitempty"`
	Language     string    `json:"language,omitempty"`
	Encoding     string    `json:"encoding,omitempty"`
	Modified     bool      `json:"modified"`
	CursorLine   uint32    `json:"cursor_line"`
	CursorColumn uint32    `json:"cursor_column"`
	BufferID     string    `json:"buffer_id,omitempty"`
	SavedAt      time.Time `json:"saved_at"`
}

// Session is the persisted tab list.
type Session struct {
	Timestamp time.Time  `json:"timestamp"`
	ActiveTab int        `json:"current_tab"`
	Tabs      []TabEntry `json:"tabs"`
}

// Store reads and writes the session directory.
type Store struct {
	dir         string
	buffersDir  string
	sessionFile string
}

// NewStore opens (creating if needed) a session directory.
func NewStore(dir string) (*Store, error) {
	s := &Store{
		dir:         dir,
		buffersDir:  filepath.Join(dir, buffersDirName),
		sessionFile: filepath.Join(dir, sessionFileName),
	}
	if err := os.MkdirAll(s.buffersDir, 0755); err != nil {
		return nil, fmt.Errorf("create session dir %s: %w", dir, err)
	}
	return s, nil
}

// Dir returns the session directory path.
func (s *Store) Dir() string { return s.dir }

// WriteSession persists the tab list atomically.
func (s *Store) WriteSession(sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return writeAtomic(s.sessionFile, data)
}

// ReadSession loads the persisted tab list. A missing file returns
// (nil, nil): no previous session.
func (s *Store) ReadSession() (*Session, error) {
	data, err := os.ReadFile(s.sessionFile)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", s.sessionFile, err)
	}
	return &sess, nil
}

// WriteBuffer persists one document's content snapshot atomically.
func (s *Store) WriteBuffer(id, content string) error {
	return writeAtomic(s.bufferPath(id), []byte(content))
}

// ReadBuffer loads a document content snapshot.
func (s *Store) ReadBuffer(id string) (string, error) {
	data, err := os.ReadFile(s.bufferPath(id))
	if err != nil {
		return "", fmt.Errorf("read buffer %s: %w", id, err)
	}
	return string(data), nil
}

// RemoveBuffer deletes a document's snapshot. Removing a snapshot that
// does not exist is not an error.
func (s *Store) RemoveBuffer(id string) error {
	err := os.Remove(s.bufferPath(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove buffer %s: %w", id, err)
	}
	return nil
}

// CleanupBuffers removes snapshot files whose id is not in keep.
func (s *Store) CleanupBuffers(keep map[string]bool) error {
	entries, err := os.ReadDir(s.buffersDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("list buffers: %w", err)
	}
	for _, entry := range entries {
		id := strings.TrimSuffix(entry.Name(), bufferExt)
		if keep[id] {
			continue
		}
		if err := os.Remove(filepath.Join(s.buffersDir, entry.Name())); err != nil {
			return fmt.Errorf("remove stale buffer %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Clear removes the session file and every buffer snapshot.
func (s *Store) Clear() error {
	if err := os.Remove(s.sessionFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return s.CleanupBuffers(nil)
}

func (s *Store) bufferPath(id string) string {
	return filepath.Join(s.buffersDir, id+bufferExt)
}

// writeAtomic writes via a same-directory temp file and rename so a
// crash mid-write never leaves a torn snapshot.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
