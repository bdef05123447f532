package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/0xsamyy/fibwatch/internal/alert"
	"github.com/0xsamyy/fibwatch/internal/watchlist"
)

var bucketTokens = []byte("tokens")

// Bolt stores one key per watched token in a single bbolt bucket; the value
// is the token's JSON-encoded state.
type Bolt struct {
	db   *bolt.DB
	path string
}

// NewBolt opens (creating if needed) the database at path.
func NewBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, &PersistenceError{Op: "open", Path: path, Err: err}
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTokens)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, &PersistenceError{Op: "open", Path: path, Err: err}
	}
	return &Bolt{db: db, path: path}, nil
}

func (b *Bolt) Path() string { return b.path }

func (b *Bolt) Close() error { return b.db.Close() }

// Load reads every token record.
func (b *Bolt) Load(_ context.Context) (watchlist.Snapshot, error) {
	snap := watchlist.Snapshot{States: make(map[string]alert.TokenState)}
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTokens).ForEach(func(k, v []byte) error {
			var st alert.TokenState
			if err := json.Unmarshal(v, &st); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			addr := string(k)
			snap.Watchlist = append(snap.Watchlist, addr)
			snap.States[addr] = st
			return nil
		})
	})
	if err != nil {
		return watchlist.Snapshot{}, &PersistenceError{Op: "load", Path: b.path, Err: err}
	}
	return snap, nil
}

// Save replaces the bucket contents with snap in one transaction.
func (b *Bolt) Save(_ context.Context, snap watchlist.Snapshot) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketTokens); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		bkt, err := tx.CreateBucket(bucketTokens)
		if err != nil {
			return err
		}
		for _, addr := range snap.Watchlist {
			v, err := json.Marshal(snap.States[addr])
			if err != nil {
				return fmt.Errorf("encode %s: %w", addr, err)
			}
			if err := bkt.Put([]byte(addr), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &PersistenceError{Op: "save", Path: b.path, Err: err}
	}
	return nil
}
