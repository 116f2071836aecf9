package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketCredentials = []byte("credentials")
	keyIdentity       = []byte("identity")
	keyToken          = []byte("token")
)

// Store persists the issued identity and token between runs under two
// fixed keys, the Go analog of the browser's localStorage slots.
type Store struct {
	db *bolt.DB
}

func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("session: store dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("session: open store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCredentials)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: init store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Load() (identity, token string, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		identity = string(b.Get(keyIdentity))
		token = string(b.Get(keyToken))
		return nil
	})
	if err != nil {
		return "", "", fmt.Errorf("session: load credentials: %w", err)
	}
	return identity, token, nil
}

func (s *Store) Save(identity, token string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		if err := b.Put(keyIdentity, []byte(identity)); err != nil {
			return err
		}
		return b.Put(keyToken, []byte(token))
	})
	if err != nil {
		return fmt.Errorf("session: save credentials: %w", err)
	}
	return nil
}

// Clear wipes both keys. Used on logout.
func (s *Store) Clear() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCredentials)
		if err := b.Delete(keyIdentity); err != nil {
			return err
		}
		return b.Delete(keyToken)
	})
	if err != nil {
		return fmt.Errorf("session: clear credentials: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }
