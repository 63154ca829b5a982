package model

import (
	"encoding/json"
	"strings"
	"testing"
)

// TestNewDocument_SerializesEmptyCollections は初期ドキュメントが3つの空配列を持つことを検証する。
func TestNewDocument_SerializesEmptyCollections(t *testing.T) {
	out, err := json.Marshal(NewDocument())
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}

	want := `{"products":[],"categories":[],"users":[]}`
	if string(out) != want {
		t.Errorf("json = %s, want %s", out, want)
	}
}

// TestDocument_Normalize_FillsNilCollections はnullのコレクションとimagesが空配列に補われることを検証する。
func TestDocument_Normalize_FillsNilCollections(t *testing.T) {
	var doc Document
	if err := json.Unmarshal([]byte(`{"products":[{"id":1,"name":"Cup","images":null}]}`), &doc); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}

	doc.Normalize()

	out, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `"images":[]`) {
		t.Errorf("images should be an empty array: %s", s)
	}
	if !strings.Contains(s, `"categories":[]`) || !strings.Contains(s, `"users":[]`) {
		t.Errorf("collections should be empty arrays: %s", s)
	}
}

func TestDocument_ProductIndex(t *testing.T) {
	doc := NewDocument()
	doc.Products = append(doc.Products, Product{ID: 10}, Product{ID: 20})

	if got := doc.ProductIndex(20); got != 1 {
		t.Errorf("ProductIndex(20) = %d, want 1", got)
	}
	if got := doc.ProductIndex(30); got != -1 {
		t.Errorf("ProductIndex(30) = %d, want -1", got)
	}
}

func TestDocument_CategoryIndex(t *testing.T) {
	doc := NewDocument()
	doc.Categories = append(doc.Categories, Category{ID: 5, Fields: map[string]any{}})

	if got := doc.CategoryIndex(5); got != 0 {
		t.Errorf("CategoryIndex(5) = %d, want 0", got)
	}
	if got := doc.CategoryIndex(6); got != -1 {
		t.Errorf("CategoryIndex(6) = %d, want -1", got)
	}
}

func TestProduct_ImageSlotsLeft(t *testing.T) {
	tests := []struct {
		images int
		want   int
	}{
		{0, 5},
		{3, 2},
		{5, 0},
		{7, 0},
	}

	for _, tt := range tests {
		p := Product{Images: make([]string, tt.images)}
		if got := p.ImageSlotsLeft(); got != tt.want {
			t.Errorf("ImageSlotsLeft() with %d images = %d, want %d", tt.images, got, tt.want)
		}
	}
}
