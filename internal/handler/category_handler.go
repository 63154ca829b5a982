package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/hitoshi/catalog/internal/catalog"
	"github.com/hitoshi/catalog/internal/model"
)

// maxJSONBodyBytes はJSONリクエストボディの上限。
const maxJSONBodyBytes = 1 << 20

// CategoryServiceInterface はカテゴリハンドラーが必要とするサービスインターフェース。
type CategoryServiceInterface interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, fields map[string]any) (*model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// CategoryHandler はカテゴリ管理のHTTPハンドラー。
type CategoryHandler struct {
	service CategoryServiceInterface
}

// NewCategoryHandler はCategoryHandlerを生成する。
func NewCategoryHandler(service CategoryServiceInterface) *CategoryHandler {
	return &CategoryHandler{
		service: service,
	}
}

// ListCategories は全カテゴリを返す。
// GET /api/categories
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// CreateCategory はJSONオブジェクトのフィールドをそのまま持つカテゴリを作成する。
// POST /api/categories
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeJSONObject(w, r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	category, err := h.service.CreateCategory(r.Context(), fields)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// DeleteCategory はカテゴリとそのカテゴリに属する商品を削除する。
// DELETE /api/categories/:id
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// decodeJSONObject はリクエストボディを1つのJSONオブジェクトとして読み込む。
// 数値はjson.Numberのまま保持する。
func decodeJSONObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err != nil {
		return nil, model.NewInvalidRequestError("request body too large or unreadable")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, model.NewInvalidRequestError("body must be a JSON object")
	}
	if fields == nil {
		return nil, model.NewInvalidRequestError("body must be a JSON object")
	}
	if dec.More() {
		return nil, model.NewInvalidRequestError("body must contain a single JSON object")
	}
	return fields, nil
}

// compile-time interface check
var _ CategoryServiceInterface = (*catalog.Service)(nil)
