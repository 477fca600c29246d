package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/scireview/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func rec(id, text, area, source string, emb ...float32) *models.Record {
	return &models.Record{
		ID:        id,
		Document:  text,
		Metadata:  map[string]string{models.MetaArea: area, models.MetaSourceID: source, models.MetaTitle: "T " + id},
		Embedding: emb,
	}
}

func TestSQLiteStorage_UpsertGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertRecords(ctx, []*models.Record{
		rec("id0", "first", "bio", "s1", 1, 0),
		rec("id1", "second", "cs", "s2", 0, 1),
	}); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetRecord(ctx, "id1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Document != "second" || got.Area() != "cs" || got.Title() != "T id1" {
		t.Errorf("got %+v", got)
	}
	if !reflect.DeepEqual(got.Embedding, []float32{0, 1}) {
		t.Errorf("embedding = %v", got.Embedding)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}

	_, err = store.GetRecord(ctx, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRecord(missing) err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_UpsertOverwritesInPlace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_ = store.UpsertRecords(ctx, []*models.Record{rec("a", "one", "bio", "s1", 1), rec("b", "two", "bio", "s1", 2)})
	if err := store.UpsertRecords(ctx, []*models.Record{rec("a", "uno", "cs", "s3", 3)}); err != nil {
		t.Fatal(err)
	}
	n, _ := store.CountRecords(ctx)
	if n != 2 {
		t.Errorf("CountRecords = %d, want 2", n)
	}
	all, err := store.ListRecords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != "a" || all[0].Document != "uno" || all[0].Embedding[0] != 3 {
		t.Errorf("ListRecords = %+v", all)
	}
}

func TestSQLiteStorage_Stats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_ = store.UpsertRecords(ctx, []*models.Record{
		rec("a", "x", "physics", "s1", 1),
		rec("b", "y", "biology", "s1", 1),
		rec("c", "z", "biology", "s2", 1),
		rec("d", "w", "", "", 1),
	})
	areas, err := store.Areas(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(areas, []string{"biology", "physics"}) {
		t.Errorf("Areas = %v", areas)
	}
	sources, _ := store.CountSources(ctx)
	if sources != 2 {
		t.Errorf("CountSources = %d, want 2", sources)
	}
}

func TestSQLiteStorage_MetaAndDeleteAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, ok, _ := store.GetMeta(ctx, "model"); ok {
		t.Fatal("meta should be empty")
	}
	if err := store.SetMeta(ctx, "model", "hash"); err != nil {
		t.Fatal(err)
	}
	_ = store.SetMeta(ctx, "model", "hash2")
	v, ok, err := store.GetMeta(ctx, "model")
	if err != nil || !ok || v != "hash2" {
		t.Errorf("GetMeta = %q, %v, %v", v, ok, err)
	}

	_ = store.UpsertRecords(ctx, []*models.Record{rec("a", "x", "bio", "s", 1)})
	if err := store.DeleteAll(ctx); err != nil {
		t.Fatal(err)
	}
	n, _ := store.CountRecords(ctx)
	if n != 0 {
		t.Errorf("CountRecords after DeleteAll = %d", n)
	}
	if _, ok, _ := store.GetMeta(ctx, "model"); ok {
		t.Error("DeleteAll should clear collection metadata")
	}
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "re.db")
	ctx := context.Background()
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.UpsertRecords(ctx, []*models.Record{rec("a", "persisted", "bio", "s", 0.5, 0.25)})
	_ = store.Close()

	store, err = NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	all, err := store.ListRecords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Document != "persisted" || !reflect.DeepEqual(all[0].Embedding, []float32{0.5, 0.25}) {
		t.Errorf("after reopen: %+v", all)
	}
}
