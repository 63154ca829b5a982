package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/catalog/internal/middleware"
)

// newUploadsHandler はコンテンツディレクトリ直下のファイルを配信するハンドラーを返す。
// ディレクトリ一覧やサブディレクトリは配信しない。
func newUploadsHandler(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "*")
		if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
			middleware.WriteNotFound(w)
			return
		}

		p := filepath.Join(dir, name)
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			middleware.WriteNotFound(w)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeFile(w, r, p)
	}
}

// newSPAHandler はフロントエンドのビルド成果物を配信するハンドラーを返す。
// 存在しないパスにはindex.htmlを返し、クライアント側ルーティングに任せる。
func newSPAHandler(dir string) http.HandlerFunc {
	index := filepath.Join(dir, "index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			middleware.WriteNotFound(w)
			return
		}

		clean := path.Clean("/" + r.URL.Path)
		if clean != "/" {
			p := filepath.Join(dir, filepath.FromSlash(clean))
			if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
				http.ServeFile(w, r, p)
				return
			}
		}

		if _, err := os.Stat(index); err != nil {
			middleware.WriteNotFound(w)
			return
		}
		http.ServeFile(w, r, index)
	}
}
