// Package storage provides persistent prediction history for the health
// risk service. It uses BoltDB as the underlying storage engine to store
// each served request's input record and per-target outcomes, which
// backs the history endpoint consumed by the mobile client's progress
// view.
//
// Persistence is best-effort: a storage failure never fails the
// prediction that triggered it.
package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"healthrisk-api/internal/schema"
)

const predictionsBucket = "predictions"

// Outcome is one target's stored result.
type Outcome struct {
	Prediction  bool    `json:"prediction"`
	Probability float64 `json:"probability"`
	Error       string  `json:"error,omitempty"`
}

// Entry is one served prediction.
type Entry struct {
	Ts            time.Time          `json:"ts"`
	Record        schema.Record      `json:"record"`
	Outcomes      map[string]Outcome `json:"outcomes"`
	InferenceTime float64            `json:"inference_time"`
}

// Store persists prediction history using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens the database under dataPath and creates the bucket.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "healthrisk-data.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create predictions bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StorePrediction appends one entry. Keys are zero-padded nanosecond
// timestamps so bucket order is chronological.
func (s *Store) StorePrediction(e Entry) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}

		key := fmt.Sprintf("%020d", e.Ts.UnixNano())
		return b.Put([]byte(key), data)
	})
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	entries := make([]Entry, 0, limit)

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()
		for k, v := c.Last(); k != nil && len(entries) < limit; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("unmarshal entry %s: %w", k, err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
