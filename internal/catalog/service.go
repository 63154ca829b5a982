// Package catalog は商品・カテゴリ・ログイン履歴のドメインロジックを提供する。
//
// すべての変更操作はrepository.DocumentStoreのUpdateを通して
// 読み込み → 変更 → 保存 の1サイクルで行う。
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hitoshi/catalog/internal/model"
	"github.com/hitoshi/catalog/internal/repository"
	"github.com/hitoshi/catalog/internal/security"
)

// MediaStore はアップロードを保存して参照文字列を返す。media.Sink が実装する。
type MediaStore interface {
	Store(ctx context.Context, originalName string, r io.Reader) (string, error)
	RemoveReference(ref string) error
}

// Recorder はサービス層のメトリクスを受け取る。metrics.Collector が実装する。
type Recorder interface {
	RecordUploads(stored, dropped int)
	RecordCollectionSizes(products, categories, users int)
}

// ProductInput は商品の作成・更新時にクライアントが指定するフィールド。
// 更新時は全フィールドが無条件に上書きされる。
type ProductInput struct {
	Name         string
	Price        float64
	Description  string
	CategoryID   int64
	CategoryName string
}

// Upload はリクエストに添付された1ファイル。
type Upload struct {
	Filename string
	Content  io.Reader
}

// LoginInput はログイン履歴として記録する内容。
type LoginInput struct {
	Email    string
	Username string
}

// Service はカタログのサービス層。
type Service struct {
	store     repository.DocumentStore
	media     MediaStore
	sanitizer security.Sanitizer
	recorder  Recorder
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// sanitizerとrecorderはnilでもよい。
func NewService(
	store repository.DocumentStore,
	media MediaStore,
	sanitizer security.Sanitizer,
	recorder Recorder,
) *Service {
	return &Service{
		store:     store,
		media:     media,
		sanitizer: sanitizer,
		recorder:  recorder,
		now:       time.Now,
	}
}

// ListProducts は全商品を登録順に返す。
func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}
	return doc.Products, nil
}

// GetProduct は指定IDの商品を返す。
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	i := doc.ProductIndex(id)
	if i < 0 {
		return nil, model.NewProductNotFoundError()
	}
	p := doc.Products[i]
	return &p, nil
}

// CreateProduct はアップロードを保存し、新しい商品を追加する。
// アップロードが上限を超える場合は何も保存せずにエラーを返す。
func (s *Service) CreateProduct(ctx context.Context, in ProductInput, uploads []Upload) (*model.Product, error) {
	if len(uploads) > model.MaxProductImages {
		return nil, model.NewTooManyFilesError(model.MaxProductImages)
	}

	images, err := s.storeUploads(ctx, uploads)
	if err != nil {
		return nil, err
	}

	var created model.Product
	err = s.store.Update(ctx, func(doc *model.Document) error {
		created = model.Product{
			ID:           nextID(s.now(), maxProductID(doc)),
			Name:         in.Name,
			Price:        in.Price,
			Description:  s.sanitize(in.Description),
			CategoryID:   in.CategoryID,
			CategoryName: in.CategoryName,
			Images:       images,
		}
		doc.Products = append(doc.Products, created)
		s.recordSizes(doc)
		return nil
	})
	if err != nil {
		s.discardUploads(images)
		return nil, fmt.Errorf("商品の作成に失敗しました: %w", err)
	}
	s.recordUploads(len(images), 0)

	slog.Info("product created",
		slog.Int64("product_id", created.ID),
		slog.Int("images", len(created.Images)),
	)
	return &created, nil
}

// UpdateProduct は商品のスカラーフィールドを上書きし、アップロードを既存画像の末尾に追加する。
//
// 画像は古いものから最大5枚まで保持する。空きスロットを超えるアップロードは
// 保存せずに破棄する。uploadsが空の場合、imagesは変更しない。
// 商品が存在しない場合はアップロードを保存せずにNotFoundを返す。
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput, uploads []Upload) (*model.Product, error) {
	if len(uploads) > model.MaxProductImages {
		return nil, model.NewTooManyFilesError(model.MaxProductImages)
	}

	var (
		updated model.Product
		stored  int
		dropped int
	)
	err := s.store.Update(ctx, func(doc *model.Document) error {
		i := doc.ProductIndex(id)
		if i < 0 {
			return model.NewProductNotFoundError()
		}
		p := &doc.Products[i]

		if len(uploads) > 0 && len(p.Images) > model.MaxProductImages {
			p.Images = p.Images[:model.MaxProductImages]
		}

		accepted := uploads
		if slots := p.ImageSlotsLeft(); len(accepted) > slots {
			accepted = accepted[:slots]
		}
		dropped = len(uploads) - len(accepted)

		refs, err := s.storeUploads(ctx, accepted)
		if err != nil {
			return err
		}
		stored = len(refs)

		p.Name = in.Name
		p.Price = in.Price
		p.Description = s.sanitize(in.Description)
		p.CategoryID = in.CategoryID
		p.CategoryName = in.CategoryName
		p.Images = append(p.Images, refs...)

		updated = *p
		updated.Images = append([]string(nil), p.Images...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("商品の更新に失敗しました: %w", err)
	}
	s.recordUploads(stored, dropped)

	if dropped > 0 {
		slog.Info("uploads beyond image slots were dropped",
			slog.Int64("product_id", id),
			slog.Int("dropped", dropped),
		)
	}
	return &updated, nil
}

// DeleteProduct は指定IDの商品を削除する。存在しない場合は何もせず成功とする。
// 画像ファイルは削除しない。
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	err := s.store.Update(ctx, func(doc *model.Document) error {
		i := doc.ProductIndex(id)
		if i < 0 {
			return repository.ErrSkipSave
		}
		doc.Products = append(doc.Products[:i], doc.Products[i+1:]...)
		s.recordSizes(doc)
		return nil
	})
	if err != nil {
		return fmt.Errorf("商品の削除に失敗しました: %w", err)
	}
	return nil
}

// ListCategories は全カテゴリを登録順に返す。
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	return doc.Categories, nil
}

// CreateCategory は任意フィールドを持つカテゴリを追加する。
// fieldsに含まれるidは無視され、生成したIDが使われる。
func (s *Service) CreateCategory(ctx context.Context, fields map[string]any) (*model.Category, error) {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "id" {
			continue
		}
		copied[k] = v
	}

	var created model.Category
	err := s.store.Update(ctx, func(doc *model.Document) error {
		created = model.Category{
			ID:     nextID(s.now(), maxCategoryID(doc)),
			Fields: copied,
		}
		doc.Categories = append(doc.Categories, created)
		s.recordSizes(doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("カテゴリの作成に失敗しました: %w", err)
	}
	return &created, nil
}

// DeleteCategory はカテゴリと、categoryIdがそのIDである全商品を1サイクルで削除する。
// カテゴリレコードが存在しなくても商品の削除は行う。
// カテゴリも商品も該当しない場合は何もせず成功とする。
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	var removedProducts int
	err := s.store.Update(ctx, func(doc *model.Document) error {
		i := doc.CategoryIndex(id)
		if i >= 0 {
			doc.Categories = append(doc.Categories[:i], doc.Categories[i+1:]...)
		}

		kept := doc.Products[:0]
		for _, p := range doc.Products {
			if p.CategoryID == id {
				removedProducts++
				continue
			}
			kept = append(kept, p)
		}
		doc.Products = kept
		if i < 0 && removedProducts == 0 {
			return repository.ErrSkipSave
		}
		s.recordSizes(doc)
		return nil
	})
	if err != nil {
		return fmt.Errorf("カテゴリの削除に失敗しました: %w", err)
	}

	if removedProducts > 0 {
		slog.Info("category deleted with products",
			slog.Int64("category_id", id),
			slog.Int("removed_products", removedProducts),
		)
	}
	return nil
}

// ListUsers はログイン履歴を登録順に返す。
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ログイン履歴の取得に失敗しました: %w", err)
	}
	return doc.Users, nil
}

// RecordLogin はログイン履歴を1件追記する。
func (s *Service) RecordLogin(ctx context.Context, in LoginInput) (*model.User, error) {
	user := model.User{
		Email:     in.Email,
		Username:  in.Username,
		LoginTime: s.now().UTC(),
	}
	err := s.store.Update(ctx, func(doc *model.Document) error {
		doc.Users = append(doc.Users, user)
		s.recordSizes(doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ログイン履歴の記録に失敗しました: %w", err)
	}
	return &user, nil
}

// storeUploads はアップロードを順に保存し、参照のリストを返す。
// 常に非nilのスライスを返す。
func (s *Service) storeUploads(ctx context.Context, uploads []Upload) ([]string, error) {
	refs := make([]string, 0, len(uploads))
	for _, u := range uploads {
		ref, err := s.media.Store(ctx, u.Filename, u.Content)
		if err != nil {
			s.discardUploads(refs)
			return nil, fmt.Errorf("画像の保存に失敗しました: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// discardUploads はドキュメントに載らなかったアップロードをベストエフォートで削除する。
// 削除に失敗したファイルはsweepで回収される。
func (s *Service) discardUploads(refs []string) {
	for _, ref := range refs {
		if err := s.media.RemoveReference(ref); err != nil {
			slog.Warn("failed to discard unreferenced upload",
				slog.String("ref", ref),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *Service) sanitize(description string) string {
	if s.sanitizer == nil {
		return description
	}
	return s.sanitizer.Sanitize(description)
}

func (s *Service) recordUploads(stored, dropped int) {
	if s.recorder != nil {
		s.recorder.RecordUploads(stored, dropped)
	}
}

func (s *Service) recordSizes(doc *model.Document) {
	if s.recorder != nil {
		s.recorder.RecordCollectionSizes(len(doc.Products), len(doc.Categories), len(doc.Users))
	}
}
