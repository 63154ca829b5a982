package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Message はクライアントがそのままアラート表示する文言。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeProductNotFound = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeInvalidID       = "INVALID_ID"
	ErrCodeTooManyFiles    = "TOO_MANY_FILES"
	ErrCodeUploadTooLarge  = "UPLOAD_TOO_LARGE"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeStorage         = "STORAGE_ERROR"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  "Product not found",
		Category: "catalog",
		Action:   "Reload the product list and try again.",
	}
}

// NewInvalidRequestError はリクエスト内容の検証エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Invalid request: %s", reason),
		Category: "validation",
		Action:   "Check the submitted fields and try again.",
	}
}

// NewInvalidIDError はパスパラメータのIDが整数でない場合のエラーを生成する。
func NewInvalidIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidID,
		Message:  fmt.Sprintf("Invalid id: %q", raw),
		Category: "validation",
		Action:   "Use the numeric id returned by the API.",
	}
}

// NewTooManyFilesError は画像ファイル数が上限を超えた場合のエラーを生成する。
func NewTooManyFilesError(max int) *APIError {
	return &APIError{
		Code:     ErrCodeTooManyFiles,
		Message:  fmt.Sprintf("Too many images: at most %d files are accepted", max),
		Category: "validation",
		Action:   fmt.Sprintf("Attach no more than %d images per request.", max),
	}
}

// NewUploadTooLargeError はアップロードサイズ超過エラーを生成する。
func NewUploadTooLargeError(maxBytes int64) *APIError {
	return &APIError{
		Code:     ErrCodeUploadTooLarge,
		Message:  fmt.Sprintf("Upload too large: each file must be at most %d bytes", maxBytes),
		Category: "validation",
		Action:   "Resize the images and upload them again.",
	}
}

// NewNotFoundError は未定義のAPIパスに対するエラーを生成する。
func NewNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  "Not found",
		Category: "system",
		Action:   "Check the request path.",
	}
}

// NewStorageError は永続化層の障害を表すエラーを生成する。
// 詳細はログにのみ残し、クライアントには一般的な文言を返す。
func NewStorageError() *APIError {
	return &APIError{
		Code:     ErrCodeStorage,
		Message:  "The catalog could not be read or saved.",
		Category: "system",
		Action:   "Please try again later.",
	}
}

// NewInternalError は内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "An internal error occurred.",
		Category: "system",
		Action:   "Please try again later.",
	}
}
