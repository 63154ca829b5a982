package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからエラーレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// testFile はマルチパートに添付するファイル。
type testFile struct {
	name    string
	content []byte
}

// newMultipartRequest はフィールドと画像ファイルを持つマルチパートリクエストを組み立てる。
func newMultipartRequest(t *testing.T, method, target string, fields map[string]string, files []testFile) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(%q): %v", k, err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(imagesField, f.name)
		if err != nil {
			t.Fatalf("CreateFormFile(%q): %v", f.name, err)
		}
		if _, err := part.Write(f.content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// validProductFields は検証を通過する商品フィールドを返す。
func validProductFields() map[string]string {
	return map[string]string{
		"name":         "Mug",
		"price":        "12.5",
		"description":  "Ceramic mug",
		"categoryId":   "3",
		"categoryName": "Kitchen",
	}
}
