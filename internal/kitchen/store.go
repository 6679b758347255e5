// Package kitchen provides the data-kitchen collaborator the prediction
// plugin calls into: feature filtering, chronological train/test splitting,
// sample weighting, and a per-pair key-value store for the normalization
// parameters recorded at training time.
//
// Per-pair state is persisted with BoltDB so a restarted process can keep
// serving predictions with the exact parameters its active model was
// trained against.
package kitchen

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const pairDataBucket = "pair_data"

// Store is the process-wide BoltDB handle behind every pair's parameter map.
type Store struct {
	db *bbolt.DB
}

// NewStore opens (or creates) the kitchen database under dataPath.
func NewStore(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "litmus-data.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(pairDataBucket)); err != nil {
			return fmt.Errorf("create pair data bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SavePairData persists a pair's parameter map, replacing any previous map.
func (s *Store) SavePairData(pair string, data map[string]float64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(pairDataBucket))

		buf, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal pair data: %w", err)
		}
		return b.Put([]byte(pair), buf)
	})
}

// LoadPairData returns a pair's persisted parameter map, or an empty map if
// the pair has never been trained.
func (s *Store) LoadPairData(pair string) (map[string]float64, error) {
	data := make(map[string]float64)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(pairDataBucket))
		buf := b.Get([]byte(pair))
		if buf == nil {
			return nil
		}
		return json.Unmarshal(buf, &data)
	})
	if err != nil {
		return nil, fmt.Errorf("load pair data for %s: %w", pair, err)
	}
	return data, nil
}
