package store

import (
	"context"
	"testing"
)

func TestChecksum(t *testing.T) {
	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Checksum("abc"); got != want {
		t.Errorf("Checksum(abc) = %s, want %s", got, want)
	}
}

func TestExportRepo_RecordAndList(t *testing.T) {
	ctx := context.Background()
	repo := &ExportRepo{DB: openTestDB(t)}

	first, err := repo.Record(ctx, "/tmp/a.txt", "hello", 100)
	if err != nil {
		t.Fatalf("Record first: %v", err)
	}
	if first.SizeBytes != 5 || first.Checksum != Checksum("hello") || first.ExportID == "" {
		t.Errorf("first record = %+v", first)
	}
	second, err := repo.Record(ctx, "/tmp/b.txt", "world!", 200)
	if err != nil {
		t.Fatalf("Record second: %v", err)
	}

	list, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 exports, got %d", len(list))
	}
	if list[0].ExportID != second.ExportID || list[1].ExportID != first.ExportID {
		t.Errorf("List order = %s, %s; want newest first", list[0].FilePath, list[1].FilePath)
	}

	one, err := repo.List(ctx, 1)
	if err != nil {
		t.Fatalf("List(1): %v", err)
	}
	if len(one) != 1 || one[0].FilePath != "/tmp/b.txt" {
		t.Errorf("List(1) = %+v", one)
	}
}
