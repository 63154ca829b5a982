package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options はグローバルロガーの設定。
type Options struct {
	Level slog.Level
	// File が空でない場合、標準出力に加えてローテーションするファイルにも出力する。
	File string
}

// ParseLevel はLOG_LEVELの値（debug, info, warn, error）をslog.Levelに変換する。
// 空文字列はinfoとして扱う。
func ParseLevel(s string) (slog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
func Setup(w io.Writer, level slog.Leveler) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// newRotatingFile はサイズベースでローテーションするログファイルを返す。
func newRotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    64, // MB
		MaxBackups: 7,
		MaxAge:     7, // days
		Compress:   false,
	}
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// wがnilの場合はos.Stdoutに出力する。
// 戻り値のCloserはプロセス終了時に閉じること（ファイル出力がない場合は何もしない）。
func SetupDefault(w io.Writer, opts Options) io.Closer {
	if w == nil {
		w = os.Stdout
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		file := newRotatingFile(opts.File)
		w = io.MultiWriter(w, file)
		closer = file
	}

	slog.SetDefault(Setup(w, opts.Level))
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
