package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Category は商品カテゴリを表す。
// id 以外のフィールドは呼び出し元が指定した内容をそのまま保持する（ホワイトリストなし）。
type Category struct {
	ID     int64
	Fields map[string]any
}

// Name はカテゴリ名を返す。nameフィールドが文字列でない場合は空文字列。
func (c Category) Name() string {
	name, _ := c.Fields["name"].(string)
	return name
}

// MarshalJSON は id と任意フィールドを1つのJSONオブジェクトとして出力する。
func (c Category) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Fields)+1)
	for k, v := range c.Fields {
		m[k] = v
	}
	m["id"] = c.ID
	return json.Marshal(m)
}

// UnmarshalJSON はJSONオブジェクトから id を取り出し、残りを Fields に格納する。
// 数値はjson.Numberのまま保持するため、保存と読み込みを繰り返しても値が変化しない。
func (c *Category) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}

	c.ID = 0
	if raw, ok := m["id"]; ok {
		n, ok := raw.(json.Number)
		if !ok {
			return fmt.Errorf("category id must be a number, got %T", raw)
		}
		id, err := n.Int64()
		if err != nil {
			return fmt.Errorf("category id must be an integer: %w", err)
		}
		c.ID = id
		delete(m, "id")
	}
	if m == nil {
		m = map[string]any{}
	}
	c.Fields = m
	return nil
}
