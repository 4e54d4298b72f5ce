// Package bolt provides a file-backed key-value store with per-key expiry,
// used as durable session storage on single-node deployments.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/cinematch/internal/infrastructure/redis"
	"go.etcd.io/bbolt"
)

var bucketName = []byte("sessions")

type record struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Store mirrors the redis client contract on top of a BBolt database.
// Missing and expired keys both report redis.ErrKeyNotFound.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// Open opens (or creates) the database file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating sessions bucket: %w", err)
	}
	slog.Info("opened bolt session store", "path", path)
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	var rec record
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketName).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	if !found {
		return "", redis.ErrKeyNotFound
	}
	if !rec.ExpiresAt.IsZero() && !s.now().Before(rec.ExpiresAt) {
		if err := s.Del(context.Background(), key); err != nil {
			slog.Warn("failed to drop expired key", "key", key, "error", err)
		}
		return "", redis.ErrKeyNotFound
	}
	return rec.Value, nil
}

// Set stores value under key. A zero expiration keeps the key forever.
func (s *Store) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	rec := record{Value: stringify(value)}
	if expiration > 0 {
		rec.ExpiresAt = s.now().Add(expiration)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), data)
	})
}

func (s *Store) Del(_ context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
