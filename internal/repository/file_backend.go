package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend はドキュメントを1つのJSONファイルとして保存するバックエンド。
// 書き込みは同じディレクトリの一時ファイルに行ってからrenameするため、
// ロックを取らない読み込みでも書きかけの内容を読むことはない。
type FileBackend struct {
	path string
}

// NewFileBackend はFileBackendを生成する。ファイルは最初の書き込み時に作成される。
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path はドキュメントファイルのパスを返す。
func (b *FileBackend) Path() string {
	return b.path
}

// Read はファイル内容を返す。ファイルが存在しない場合は (nil, nil)。
func (b *FileBackend) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}
	return data, nil
}

// Write はファイル全体をアトミックに置き換える。
func (b *FileBackend) Write(ctx context.Context, data []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", b.path, err)
	}
	return nil
}

// Close は何もしない。
func (b *FileBackend) Close() error {
	return nil
}

// compile-time interface check
var _ DocumentBackend = (*FileBackend)(nil)
