package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/catalog/internal/middleware"
	"github.com/hitoshi/catalog/internal/model"
	"github.com/hitoshi/catalog/internal/repository"
)

// writeJSON は値をJSONで書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// successResponse は削除系エンドポイントのレスポンス。
type successResponse struct {
	Success bool `json:"success"`
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	requestID := middleware.RequestIDFromContext(r.Context())

	var storageErr *repository.StorageError
	if errors.As(err, &storageErr) {
		slog.Error("storage error",
			slog.String("op", storageErr.Op),
			slog.String("error", err.Error()),
			slog.String("request_id", requestID),
		)
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewStorageError())
		return
	}

	// それ以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error",
		slog.String("error", err.Error()),
		slog.String("request_id", requestID),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeProductNotFound, model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidRequest, model.ErrCodeInvalidID, model.ErrCodeTooManyFiles:
		return http.StatusBadRequest
	case model.ErrCodeUploadTooLarge:
		return http.StatusRequestEntityTooLarge
	case model.ErrCodeStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
