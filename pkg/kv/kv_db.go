package kv

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// KVDB persisted key -> string store buat lookup cache. Value di compress pakai zstd.
type KVDB struct {
	db *pebble.DB
}

func NewKVDB(db *pebble.DB) *KVDB {
	return &KVDB{db}
}

// OpenKVDB buka pebble db di dir. dir kosong = in memory, isi hilang kalau process mati.
func OpenKVDB(dir string) (*KVDB, error) {
	opts := &pebble.Options{}
	if dir == "" {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db %q: %w", dir, err)
	}
	return NewKVDB(db), nil
}

func (k *KVDB) Get(key string) (string, bool, error) {
	val, closer, err := k.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	defer closer.Close()

	bb, err := Decompress(val)
	if err != nil {
		return "", false, fmt.Errorf("failed to decompress %q: %w", key, err)
	}
	return string(bb), true, nil
}

func (k *KVDB) Put(key, value string) error {
	val, err := Compress([]byte(value))
	if err != nil {
		return fmt.Errorf("failed to compress %q: %w", key, err)
	}
	if err := k.db.Set([]byte(key), val, pebble.Sync); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

// Has tanpa decompress value.
func (k *KVDB) Has(key string) (bool, error) {
	_, closer, err := k.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

func (k *KVDB) Close() error {
	return k.db.Close()
}
