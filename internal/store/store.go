package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/angeloszaimis/migration-gateway/internal/feature"
	"github.com/angeloszaimis/migration-gateway/internal/telemetry"
)

var (
	// Bucket names
	bucketModes   = []byte("feature_modes")
	bucketSamples = []byte("samples")
)

// Two logical records, each stored as a single JSON value under a
// fixed key, mirroring the configuration blob and recent-sample list
// the gateway keeps between restarts.
var (
	keyModes   = []byte("modes")
	keySamples = []byte("recent")
)

// Store persists gateway state in a BoltDB file. All methods return
// errors instead of swallowing them; callers decide whether a failed
// write is fatal or just logged.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the gateway database under dataDir.
func Open(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "gateway.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketModes, bucketSamples} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveModes overwrites the persisted feature mode map.
func (s *Store) SaveModes(modes map[feature.Feature]feature.Mode) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(modes)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketModes).Put(keyModes, data)
	})
}

// LoadModes returns the persisted feature mode map, or nil if nothing
// has been stored yet. A malformed record is an error; callers fall
// back to configured defaults.
func (s *Store) LoadModes() (map[feature.Feature]feature.Mode, error) {
	var modes map[feature.Feature]feature.Mode
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketModes).Get(keyModes)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &modes)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load feature modes: %w", err)
	}
	return modes, nil
}

// SaveSamples overwrites the persisted recent-sample list.
func (s *Store) SaveSamples(samples []telemetry.Sample) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(samples)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketSamples).Put(keySamples, data)
	})
}

// LoadSamples returns the persisted recent samples, or nil if nothing
// has been stored yet.
func (s *Store) LoadSamples() ([]telemetry.Sample, error) {
	var samples []telemetry.Sample
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSamples).Get(keySamples)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &samples)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load samples: %w", err)
	}
	return samples, nil
}
