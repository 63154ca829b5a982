package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/catalog/internal/catalog"
	"github.com/hitoshi/catalog/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	RecordLogin(ctx context.Context, in catalog.LoginInput) (*model.User, error)
}

// UserHandler はログイン履歴のHTTPハンドラー。
type UserHandler struct {
	service  UserServiceInterface
	validate *validator.Validate
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, validate *validator.Validate) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: validate,
	}
}

// recordLoginRequest はログイン記録リクエストのボディ。
type recordLoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Username string `json:"username" validate:"required,max=200"`
}

// ListUsers はログイン履歴を返す。
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// RecordLogin はログイン履歴を1件追記する。
// POST /api/users
func (h *UserHandler) RecordLogin(w http.ResponseWriter, r *http.Request) {
	var req recordLoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&req); err != nil {
		handleServiceError(w, r, model.NewInvalidRequestError("body must be a JSON object"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		handleServiceError(w, r, model.NewInvalidRequestError(describeValidationError(err)))
		return
	}

	user, err := h.service.RecordLogin(r.Context(), catalog.LoginInput{
		Email:    req.Email,
		Username: req.Username,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// compile-time interface check
var _ UserServiceInterface = (*catalog.Service)(nil)
