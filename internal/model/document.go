package model

// Document は永続化される単一のドキュメント。
// products、categories、users の3コレクションを常に保持する。
type Document struct {
	Products   []Product  `json:"products"`
	Categories []Category `json:"categories"`
	Users      []User     `json:"users"`
}

// NewDocument は3コレクションが空の初期ドキュメントを返す。
func NewDocument() *Document {
	return &Document{
		Products:   []Product{},
		Categories: []Category{},
		Users:      []User{},
	}
}

// Normalize は欠落しているコレクションや images を空スライスで補う。
// 古いdb.jsonに null が保存されていても空配列としてシリアライズされるようにする。
func (d *Document) Normalize() {
	if d.Products == nil {
		d.Products = []Product{}
	}
	if d.Categories == nil {
		d.Categories = []Category{}
	}
	if d.Users == nil {
		d.Users = []User{}
	}
	for i := range d.Products {
		if d.Products[i].Images == nil {
			d.Products[i].Images = []string{}
		}
	}
	for i := range d.Categories {
		if d.Categories[i].Fields == nil {
			d.Categories[i].Fields = map[string]any{}
		}
	}
}

// ProductIndex は指定IDの商品のインデックスを返す。見つからない場合は-1。
func (d *Document) ProductIndex(id int64) int {
	for i := range d.Products {
		if d.Products[i].ID == id {
			return i
		}
	}
	return -1
}

// CategoryIndex は指定IDのカテゴリのインデックスを返す。見つからない場合は-1。
func (d *Document) CategoryIndex(id int64) int {
	for i := range d.Categories {
		if d.Categories[i].ID == id {
			return i
		}
	}
	return -1
}
