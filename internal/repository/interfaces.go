// Package repository はカタログドキュメントの永続化を提供する。
//
// 永続化の単位は products、categories、users を含む単一のドキュメントであり、
// フィールド単位の部分更新は存在しない。すべての変更は
// 読み込み → 変更 → 全体保存 のサイクルとして行われる。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/catalog/internal/model"
)

// DocumentBackend はシリアライズ済みドキュメントを保存するストレージの抽象。
// ファイル、bbolt、PostgreSQL の実装を持つ。
type DocumentBackend interface {
	// Read は保存済みのドキュメントを返す。まだ存在しない場合は (nil, nil) を返す。
	Read(ctx context.Context) ([]byte, error)

	// Write はドキュメント全体を置き換える。
	Write(ctx context.Context, data []byte) error

	// Close はバックエンドが保持するリソースを解放する。
	Close() error
}

// DocumentStore はカタログサービスが利用するドキュメントストアのインターフェース。
type DocumentStore interface {
	// Load はドキュメント全体を返す。存在しない場合は空の3コレクションで初期化して保存する。
	Load(ctx context.Context) (*model.Document, error)

	// Save はドキュメント全体を保存する。
	Save(ctx context.Context, doc *model.Document) error

	// Update は読み込み → fn → 保存 を1つの排他区間で実行する。
	// fnがエラーを返した場合は保存せずにそのエラーを返す。
	// fnがErrSkipSaveを返した場合は保存せずにnilを返す。
	Update(ctx context.Context, fn func(doc *model.Document) error) error
}

// OperationObserver はストア操作の所要時間と結果を受け取る。
// metrics.Collector が実装する。
type OperationObserver interface {
	ObserveStoreOperation(op string, duration time.Duration, err error)
}
