package handler

import (
	"errors"
	"fmt"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"

	"github.com/hitoshi/catalog/internal/catalog"
	"github.com/hitoshi/catalog/internal/model"
)

// imagesField はマルチパートで画像ファイルを受け取るフィールド名。
const imagesField = "images"

// multipartMemory はParseMultipartFormがメモリに保持する上限。超えた分は一時ファイルになる。
const multipartMemory = 8 << 20

// formOverhead はファイル以外のマルチパートフィールドに許容するバイト数。
const formOverhead = 1 << 20

// productForm はマルチパートから取り出した商品フィールド。
type productForm struct {
	Name         string  `validate:"max=200"`
	Price        float64 `validate:"gte=0"`
	Description  string  `validate:"max=5000"`
	CategoryID   int64   `validate:"gte=0"`
	CategoryName string  `validate:"max=200"`
}

// parsedProductRequest は商品の作成・更新リクエストの解析結果。
// Closeで開いたファイルと一時ファイルを解放すること。
type parsedProductRequest struct {
	input   catalog.ProductInput
	uploads []catalog.Upload

	form  *multipart.Form
	files []multipart.File
}

// Close は開いたファイルとParseMultipartFormが作成した一時ファイルを解放する。
func (p *parsedProductRequest) Close() {
	for _, f := range p.files {
		f.Close()
	}
	if p.form != nil {
		p.form.RemoveAll()
	}
}

// parseProductRequest はマルチパートの商品リクエストを解析・検証する。
func parseProductRequest(w http.ResponseWriter, r *http.Request, validate *validator.Validate, maxUploadBytes int64) (*parsedProductRequest, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return nil, model.NewInvalidRequestError("expected multipart/form-data")
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes*model.MaxProductImages+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, model.NewUploadTooLargeError(maxUploadBytes)
		}
		return nil, model.NewInvalidRequestError("malformed multipart body")
	}

	parsed := &parsedProductRequest{form: r.MultipartForm}

	form, err := decodeProductForm(r.MultipartForm.Value)
	if err != nil {
		parsed.Close()
		return nil, err
	}
	if err := validate.Struct(form); err != nil {
		parsed.Close()
		return nil, model.NewInvalidRequestError(describeValidationError(err))
	}
	parsed.input = catalog.ProductInput{
		Name:         form.Name,
		Price:        form.Price,
		Description:  form.Description,
		CategoryID:   form.CategoryID,
		CategoryName: form.CategoryName,
	}

	headers := r.MultipartForm.File[imagesField]
	if len(headers) > model.MaxProductImages {
		parsed.Close()
		return nil, model.NewTooManyFilesError(model.MaxProductImages)
	}
	for _, fh := range headers {
		if fh.Size > maxUploadBytes {
			parsed.Close()
			return nil, model.NewUploadTooLargeError(maxUploadBytes)
		}
		f, err := fh.Open()
		if err != nil {
			parsed.Close()
			return nil, fmt.Errorf("failed to open uploaded file: %w", err)
		}
		parsed.files = append(parsed.files, f)
		parsed.uploads = append(parsed.uploads, catalog.Upload{Filename: fh.Filename, Content: f})
	}

	return parsed, nil
}

// decodeProductForm はフォーム値を型付きのフィールドに変換する。
// price と categoryId は必須で、数値として解釈できない場合はエラーにする。
// 文字列フィールドは省略された場合に空文字列になる。
func decodeProductForm(values map[string][]string) (*productForm, error) {
	first := func(key string) (string, bool) {
		v, ok := values[key]
		if !ok || len(v) == 0 {
			return "", false
		}
		return v[0], true
	}

	form := &productForm{}
	form.Name, _ = first("name")
	form.Description, _ = first("description")
	form.CategoryName, _ = first("categoryName")

	rawPrice, ok := first("price")
	if !ok || strings.TrimSpace(rawPrice) == "" {
		return nil, model.NewInvalidRequestError("price is required")
	}
	price, err := cast.ToFloat64E(strings.TrimSpace(rawPrice))
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("price must be a number, got %q", rawPrice))
	}
	form.Price = price

	rawCategoryID, ok := first("categoryId")
	if !ok || strings.TrimSpace(rawCategoryID) == "" {
		return nil, model.NewInvalidRequestError("categoryId is required")
	}
	categoryID, err := parseCategoryID(rawCategoryID)
	if err != nil {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("categoryId must be an integer, got %q", rawCategoryID))
	}
	form.CategoryID = categoryID

	return form, nil
}

// parseCategoryID は10進整数のみを受け付ける。"1e3" や "12.0" は拒否する。
func parseCategoryID(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

// describeValidationError はvalidatorのエラーを利用者向けの短い文に変換する。
func describeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := jsonFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// jsonFieldName はGoのフィールド名をAPIのフィールド名に変換する。
func jsonFieldName(goName string) string {
	switch goName {
	case "CategoryID":
		return "categoryId"
	case "CategoryName":
		return "categoryName"
	}
	if goName == "" {
		return goName
	}
	return strings.ToLower(goName[:1]) + goName[1:]
}

// pathID はURLパスの {id} を10進整数として取り出す。
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, model.NewInvalidIDError(raw)
	}
	return id, nil
}
