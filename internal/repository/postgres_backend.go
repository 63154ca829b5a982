package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresBackend はcatalog_documentsテーブルの1行にドキュメントを保存するバックエンド。
// テーブルはdatabase.RunMigrationsで作成する。
type PostgresBackend struct {
	db *sql.DB
}

// NewPostgresBackend はPostgresBackendを生成する。dbの所有権はバックエンドに移り、Closeで閉じられる。
func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Read は保存済みドキュメントを返す。行がない場合は (nil, nil)。
func (b *PostgresBackend) Read(ctx context.Context) ([]byte, error) {
	var body []byte
	err := b.db.QueryRowContext(ctx,
		`SELECT body FROM catalog_documents WHERE id = 1`,
	).Scan(&body)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog document: %w", err)
	}
	return body, nil
}

// Write はドキュメントをUPSERTする。
func (b *PostgresBackend) Write(ctx context.Context, data []byte) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO catalog_documents (id, body, updated_at)
		 VALUES (1, $1::jsonb, now())
		 ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to write catalog document: %w", err)
	}
	return nil
}

// Close はデータベース接続を閉じる。
func (b *PostgresBackend) Close() error {
	return b.db.Close()
}

// compile-time interface check
var _ DocumentBackend = (*PostgresBackend)(nil)
