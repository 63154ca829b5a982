package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hitoshi/catalog/internal/model"
)

func TestBoltBackend_ReadWrite(t *testing.T) {
	b, err := OpenBoltBackend(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenBoltBackend returned error: %v", err)
	}
	defer b.Close()
	ctx := context.Background()

	data, err := b.Read(ctx)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if data != nil {
		t.Errorf("expected nil before first write, got %q", data)
	}

	if err := b.Write(ctx, []byte(`{"products":[]}`)); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	data, err = b.Read(ctx)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if string(data) != `{"products":[]}` {
		t.Errorf("data = %q", data)
	}
}

// 再オープン後も内容が保持されていることを検証する。
func TestBoltBackend_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	b, err := OpenBoltBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	store := NewStore(b, nil)
	err = store.Update(ctx, func(doc *model.Document) error {
		doc.Users = append(doc.Users, model.User{Email: "a@example.com", Username: "a"})
		return nil
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	b, err = OpenBoltBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	doc, err := NewStore(b, nil).Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(doc.Users) != 1 || doc.Users[0].Email != "a@example.com" {
		t.Errorf("unexpected users: %+v", doc.Users)
	}
}
