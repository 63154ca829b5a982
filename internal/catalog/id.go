package catalog

import (
	"time"

	"github.com/hitoshi/catalog/internal/model"
)

// nextID は現在時刻（ミリ秒）をIDとして返す。
// 既存の最大IDより大きくならない場合は max+1 を返し、
// 同一ミリ秒内の作成でもIDが一意かつ単調増加になるようにする。
func nextID(now time.Time, maxID int64) int64 {
	id := now.UnixMilli()
	if id <= maxID {
		return maxID + 1
	}
	return id
}

func maxProductID(doc *model.Document) int64 {
	var maxID int64
	for _, p := range doc.Products {
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	return maxID
}

func maxCategoryID(doc *model.Document) int64 {
	var maxID int64
	for _, c := range doc.Categories {
		if c.ID > maxID {
			maxID = c.ID
		}
	}
	return maxID
}
