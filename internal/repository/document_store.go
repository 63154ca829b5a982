package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hitoshi/catalog/internal/model"
)

// ErrSkipSave はUpdateのコールバックが変更なしを通知するためのセンチネルエラー。
var ErrSkipSave = errors.New("repository: skip save")

// StorageError は永続化層の読み書き失敗を表す。
// 読み込めないストレージや壊れたJSONもこのエラーとして呼び出し元へ伝播する。
type StorageError struct {
	Op  string // read, decode, encode, write
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *StorageError) Error() string {
	return fmt.Sprintf("document store %s failed: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Store はDocumentBackendの上に読み込み・保存・単一ライター区間を提供する。
//
// 変更系の操作はすべてUpdateを通り、1つのmutexで読み込みから保存までを囲む。
// これにより並行する更新が互いの変更を上書きする（lost update）ことはない。
// Loadはロックを取らず、最後に保存されたスナップショットを読む。
type Store struct {
	backend  DocumentBackend
	observer OperationObserver

	mu sync.Mutex
}

// NewStore はStoreを生成する。observerはnilでもよい。
func NewStore(backend DocumentBackend, observer OperationObserver) *Store {
	return &Store{
		backend:  backend,
		observer: observer,
	}
}

// Load はドキュメント全体を返す。
func (s *Store) Load(ctx context.Context) (doc *model.Document, err error) {
	defer s.observe("load", time.Now(), &err)

	doc, err = s.read(ctx)
	if err != nil {
		return nil, err
	}
	if doc != nil {
		return doc, nil
	}

	// 初期化は書き込みを伴うため排他区間で行う
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadOrInit(ctx)
}

// Save はドキュメント全体を保存する。
func (s *Store) Save(ctx context.Context, doc *model.Document) (err error) {
	defer s.observe("save", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, doc)
}

// Update は読み込み → fn → 保存 を排他区間で実行する。
func (s *Store) Update(ctx context.Context, fn func(doc *model.Document) error) (err error) {
	defer s.observe("update", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadOrInit(ctx)
	if err != nil {
		return err
	}

	if err := fn(doc); err != nil {
		if errors.Is(err, ErrSkipSave) {
			return nil
		}
		return err
	}

	return s.write(ctx, doc)
}

// Close はバックエンドを閉じる。
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Close()
}

// loadOrInit はドキュメントを読み込み、存在しなければ初期ドキュメントを保存して返す。
// 呼び出し元はmuを保持していること。
func (s *Store) loadOrInit(ctx context.Context) (*model.Document, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if doc != nil {
		return doc, nil
	}

	doc = model.NewDocument()
	if err := s.write(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) read(ctx context.Context) (*model.Document, error) {
	data, err := s.backend.Read(ctx)
	if err != nil {
		return nil, &StorageError{Op: "read", Err: err}
	}
	if data == nil {
		return nil, nil
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &StorageError{Op: "decode", Err: err}
	}
	doc.Normalize()
	return &doc, nil
}

func (s *Store) write(ctx context.Context, doc *model.Document) error {
	doc.Normalize()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode", Err: err}
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return &StorageError{Op: "write", Err: err}
	}
	return nil
}

func (s *Store) observe(op string, start time.Time, errp *error) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveStoreOperation(op, time.Since(start), *errp)
}

// compile-time interface check
var _ DocumentStore = (*Store)(nil)
