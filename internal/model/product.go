// Package model はドメインモデルを定義する。
package model

// MaxProductImages は1商品が保持できる画像スロットの上限。
const MaxProductImages = 5

// Product はカタログ上の商品を表す。
//
// CategoryName は書き込み時点のカテゴリ名のスナップショットであり、
// カテゴリ名が後から変更されても追従しない。
type Product struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	Description  string   `json:"description"`
	CategoryID   int64    `json:"categoryId"`
	CategoryName string   `json:"categoryName"`
	Images       []string `json:"images"`
}

// ImageSlotsLeft は追加可能な画像スロット数を返す。
func (p *Product) ImageSlotsLeft() int {
	left := MaxProductImages - len(p.Images)
	if left < 0 {
		return 0
	}
	return left
}
