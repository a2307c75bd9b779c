// Package history persists listening history in an append-only capped JSON
// file and derives time-of-day listening suggestions from it.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moodtracks/go-spotify-mood-recommender/internal/emotion"
)

// MaxRecords caps the history file. When an append would exceed it, the
// oldest records are evicted first (FIFO by insertion order).
const MaxRecords = 1000

// ErrMissingFields is returned when a record lacks its required fields.
var ErrMissingFields = errors.New("userId and emotion are required")

// Record is one listening event.
type Record struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Emotion   emotion.Emotion `json:"emotion"`
	TrackID   string          `json:"trackId,omitempty"`
	TrackName string          `json:"trackName,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Hour      int             `json:"hour"`
	DayOfWeek int             `json:"dayOfWeek"`
}

// Store is a file-backed history log. All access goes through a mutex: the
// file is rewritten whole on every append, so concurrent writers would
// otherwise lose records. The store assumes it is the only writer of its
// file (single process).
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewStore creates a Store over the given file path. The file and its
// directory are created on first append.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Append validates and appends a record, evicting the oldest records when
// the cap is exceeded. The record's ID, timestamp and derived time fields
// are filled in if unset.
func (s *Store) Append(rec Record) error {
	if rec.UserID == "" || rec.Emotion == "" {
		return ErrMissingFields
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	rec.Hour = rec.Timestamp.Hour()
	rec.DayOfWeek = int(rec.Timestamp.Weekday())

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	records = append(records, rec)
	if len(records) > MaxRecords {
		records = records[len(records)-MaxRecords:]
	}
	return s.write(records)
}

// All returns every stored record, oldest first.
func (s *Store) All() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// ForUser returns the stored records for one user, oldest first.
func (s *Store) ForUser(userID string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, rec := range s.load() {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out
}

// load reads the history file. A missing or unreadable file yields an empty
// history rather than an error; the log is advisory data, not a source of
// truth worth failing a request over.
func (s *Store) load() []Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("reading history file %s: %v", s.path, err)
		}
		return nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("parsing history file %s, starting fresh: %v", s.path, err)
		return nil
	}
	return records
}

func (s *Store) write(records []Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing history file: %w", err)
	}
	return nil
}
