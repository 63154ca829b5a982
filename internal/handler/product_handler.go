package handler

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/catalog/internal/catalog"
	"github.com/hitoshi/catalog/internal/model"
)

// ProductServiceInterface は商品ハンドラーが必要とするサービスインターフェース。
type ProductServiceInterface interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	CreateProduct(ctx context.Context, in catalog.ProductInput, uploads []catalog.Upload) (*model.Product, error)
	UpdateProduct(ctx context.Context, id int64, in catalog.ProductInput, uploads []catalog.Upload) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// ProductHandler は商品管理のHTTPハンドラー。
type ProductHandler struct {
	service        ProductServiceInterface
	validate       *validator.Validate
	maxUploadBytes int64
}

// NewProductHandler はProductHandlerを生成する。
// maxUploadBytesは1ファイルあたりのサイズ上限。
func NewProductHandler(service ProductServiceInterface, validate *validator.Validate, maxUploadBytes int64) *ProductHandler {
	return &ProductHandler{
		service:        service,
		validate:       validate,
		maxUploadBytes: maxUploadBytes,
	}
}

// ListProducts は全商品を返す。
// GET /api/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProduct は1件の商品を返す。
// GET /api/products/:id
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// CreateProduct はマルチパートの商品フィールドと画像から商品を作成する。
// POST /api/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	req, err := parseProductRequest(w, r, h.validate, h.maxUploadBytes)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	defer req.Close()

	product, err := h.service.CreateProduct(r.Context(), req.input, req.uploads)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// UpdateProduct は商品を更新する。画像は既存の画像の末尾に追加される。
// PUT /api/products/:id
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	req, err := parseProductRequest(w, r, h.validate, h.maxUploadBytes)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	defer req.Close()

	product, err := h.service.UpdateProduct(r.Context(), id, req.input, req.uploads)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct は商品を削除する。存在しないIDでも成功を返す。
// DELETE /api/products/:id
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// compile-time interface check
var _ ProductServiceInterface = (*catalog.Service)(nil)
