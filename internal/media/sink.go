// Package media はアップロードされた画像ファイルの保存を提供する。
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// URLPrefix は保存したファイルを参照するURLパスの接頭辞。
const URLPrefix = "/uploads/"

// maxExtLen は保持する拡張子（ドットを含む）の最大長。
const maxExtLen = 16

// Entry はコンテンツディレクトリ内の1ファイル。
type Entry struct {
	Name    string
	ModTime time.Time
}

// Sink はアップロードを衝突しにくいファイル名でコンテンツディレクトリに保存する。
// 保存したファイルを自動で削除することはない。
type Sink struct {
	dir string

	now   func() time.Time
	randN func(n int64) int64
}

// NewSink はdirを作成してSinkを返す。
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory %s: %w", dir, err)
	}
	return &Sink{
		dir:   dir,
		now:   time.Now,
		randN: rand.Int64N,
	}, nil
}

// Dir はコンテンツディレクトリのパスを返す。
func (s *Sink) Dir() string {
	return s.dir
}

// Store はrの内容を新しいファイルに書き込み、"/uploads/{name}" 形式の参照を返す。
// クライアントが送ったファイル名は拡張子のみ使用する。
func (s *Sink) Store(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := s.generateName(originalName)
	path := filepath.Join(s.dir, name)

	// O_EXCLで既存ファイルの上書きを防ぐ
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close upload file: %w", err)
	}

	return URLPrefix + name, nil
}

// List はコンテンツディレクトリ直下の通常ファイルを返す。
func (s *Sink) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// 列挙後に削除された
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", de.Name(), err)
		}
		entries = append(entries, Entry{Name: de.Name(), ModTime: info.ModTime()})
	}
	return entries, nil
}

// Remove は指定名のファイルを削除する。存在しない場合は何もしない。
func (s *Sink) Remove(name string) error {
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("invalid upload name %q", name)
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove upload %s: %w", name, err)
	}
	return nil
}

// RemoveReference は "/uploads/{name}" 形式の参照が指すファイルを削除する。
func (s *Sink) RemoveReference(ref string) error {
	name, ok := NameFromReference(ref)
	if !ok {
		return fmt.Errorf("invalid upload reference %q", ref)
	}
	return s.Remove(name)
}

// NameFromReference は "/uploads/{name}" 形式の参照からファイル名を取り出す。
func NameFromReference(ref string) (string, bool) {
	name, ok := strings.CutPrefix(ref, URLPrefix)
	if !ok || name == "" || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return name, true
}

// generateName は "{unixMillis}-{0..999999999}{ext}" 形式のファイル名を生成する。
func (s *Sink) generateName(originalName string) string {
	return strconv.FormatInt(s.now().UnixMilli(), 10) +
		"-" + strconv.FormatInt(s.randN(1_000_000_000), 10) +
		extension(originalName)
}

// extension はクライアントのファイル名から安全な拡張子だけを取り出す。
// 英数字以外を含む拡張子は捨てる。
func extension(originalName string) string {
	base := originalName
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	i := strings.LastIndexByte(base, '.')
	if i <= 0 || i == len(base)-1 {
		return ""
	}
	ext := base[i:]
	if len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}
