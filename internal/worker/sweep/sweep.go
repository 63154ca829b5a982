// Package sweep は商品から参照されなくなった画像ファイルの削除ジョブを提供する。
// 商品の更新・削除では画像ファイルを消さないため、孤立したファイルは
// このジョブを明示的に実行したときにだけ削除される。
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/catalog/internal/media"
	"github.com/hitoshi/catalog/internal/model"
)

// DocumentLoader はドキュメントの読み込みを抽象化するインターフェース。
type DocumentLoader interface {
	Load(ctx context.Context) (*model.Document, error)
}

// MediaDir はコンテンツディレクトリの列挙と削除を抽象化するインターフェース。
// *media.Sink が実装する。
type MediaDir interface {
	List() ([]media.Entry, error)
	Remove(name string) error
}

// Recorder は削除件数のメトリクスを受け取る。
type Recorder interface {
	RecordOrphansRemoved(count int)
}

// SweepJob は孤立した画像ファイルの削除ジョブ。
// 冪等で、削除対象がない場合でもエラーにならない。
type SweepJob struct {
	store    DocumentLoader
	media    MediaDir
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	// GracePeriod より新しいファイルは参照がなくても削除しない（デフォルト: 1時間）。
	// 保存済みでまだドキュメントに反映されていないアップロードを守るため。
	GracePeriod time.Duration
}

// NewSweepJob は新しいSweepJobを生成する。recorderはnilでもよい。
func NewSweepJob(store DocumentLoader, mediaDir MediaDir, recorder Recorder, logger *slog.Logger) *SweepJob {
	return &SweepJob{
		store:       store,
		media:       mediaDir,
		recorder:    recorder,
		logger:      logger,
		now:         time.Now,
		GracePeriod: time.Hour,
	}
}

// Run は参照されておらず、GracePeriodより古いファイルを削除して削除件数を返す。
// 個々のファイルの削除失敗はログに残して処理を続ける。
func (j *SweepJob) Run(ctx context.Context) (int, error) {
	start := j.now()

	doc, err := j.store.Load(ctx)
	if err != nil {
		j.logger.Error("画像クリーンアップのためのドキュメント読み込みに失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("ドキュメントの読み込みに失敗: %w", err)
	}

	referenced := referencedNames(doc)

	entries, err := j.media.List()
	if err != nil {
		j.logger.Error("コンテンツディレクトリの列挙に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("コンテンツディレクトリの列挙に失敗: %w", err)
	}

	cutoff := start.Add(-j.GracePeriod)
	removed, failed := 0, 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if strings.HasPrefix(e.Name, ".") {
			continue
		}
		if _, ok := referenced[e.Name]; ok {
			continue
		}
		if e.ModTime.After(cutoff) {
			continue
		}

		if err := j.media.Remove(e.Name); err != nil {
			failed++
			j.logger.Warn("孤立した画像ファイルの削除に失敗しました",
				slog.String("name", e.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
		j.logger.Debug("孤立した画像ファイルを削除しました", slog.String("name", e.Name))
	}

	if j.recorder != nil && removed > 0 {
		j.recorder.RecordOrphansRemoved(removed)
	}

	j.logger.Info("画像クリーンアップジョブが完了しました",
		slog.Int("removed_count", removed),
		slog.Int("failed_count", failed),
		slog.Int("scanned_count", len(entries)),
		slog.Int("referenced_count", len(referenced)),
		slog.Float64("duration_ms", float64(j.now().Sub(start).Milliseconds())),
	)

	return removed, nil
}

// referencedNames は全商品の画像参照からファイル名の集合を作る。
func referencedNames(doc *model.Document) map[string]struct{} {
	names := make(map[string]struct{})
	for _, p := range doc.Products {
		for _, ref := range p.Images {
			if name, ok := media.NameFromReference(ref); ok {
				names[name] = struct{}{}
			}
		}
	}
	return names
}
