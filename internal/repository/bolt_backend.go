package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	boltBucket = []byte("catalog")
	boltKey    = []byte("document")
)

// BoltBackend はbboltの1キーにドキュメントを保存するバックエンド。
// bboltはファイルロックを取るため、同じファイルを複数プロセスで開くことはできない。
type BoltBackend struct {
	db *bolt.DB
}

// OpenBoltBackend は指定パスのbboltデータベースを開き、バケットを用意する。
func OpenBoltBackend(path string) (*BoltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltBackend{db: db}, nil
}

// Read は保存済みドキュメントを返す。未保存の場合は (nil, nil)。
func (b *BoltBackend) Read(ctx context.Context) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get(boltKey)
		if v != nil {
			// トランザクション外では参照できないためコピーする
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}

// Write はドキュメントを置き換える。
func (b *BoltBackend) Write(ctx context.Context, data []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(boltKey, data)
	})
	if err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// Close はデータベースを閉じる。
func (b *BoltBackend) Close() error {
	return b.db.Close()
}

// compile-time interface check
var _ DocumentBackend = (*BoltBackend)(nil)
