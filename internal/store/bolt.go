package store

import (
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/mrz1836/onboard/internal/fileutil"
)

const boltOpenTimeout = time.Second

// recordsBucket holds every record.
var recordsBucket = []byte("records") //nolint:gochecknoglobals // bucket name

// boltBackend stores records in a single bbolt bucket.
type boltBackend struct {
	db *bbolt.DB
}

func openBolt(path string) (*boltBackend, error) {
	if path == "" {
		return nil, errors.New("bolt store path is required")
	}
	if err := fileutil.EnsureParent(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, fileutil.FilePerm, &bbolt.Options{
		Timeout:      boltOpenTimeout,
		FreelistType: bbolt.FreelistMapType,
	})
	if err != nil {
		return nil, fmt.Errorf("opening bolt store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &boltBackend{db: db}, nil
}

func (b *boltBackend) load(key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(recordsBucket)
		if bucket == nil {
			return nil
		}
		// Values are only valid inside the transaction.
		if v := bucket.Get([]byte(key)); v != nil {
			out = make([]byte, len(v))
			copy(out, v)
		}
		return nil
	})
	return out, err
}

func (b *boltBackend) save(key string, value []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(recordsBucket)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), value)
	})
}

func (b *boltBackend) clear() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(recordsBucket); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(recordsBucket)
		return err
	})
}

func (b *boltBackend) close() error {
	return b.db.Close()
}
