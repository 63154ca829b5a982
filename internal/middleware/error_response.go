package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/catalog/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// errorにはクライアントがそのまま表示する文言が入る。
type ErrorResponseBody struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Error:    apiErr.Message,
		Code:     apiErr.Code,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// WriteNotFound は404の統一レスポンスを書き込む。
func WriteNotFound(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError())
}
