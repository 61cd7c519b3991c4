package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/matzehuels/dungeontower/pkg/geom"
	"github.com/matzehuels/dungeontower/pkg/maplayout"
)

func testDoc(name string, seed uint64) *maplayout.Document {
	return &maplayout.Document{
		Name:   name,
		Width:  4,
		Height: 4,
		Seed:   seed,
		Rooms: []maplayout.RoomDoc{{
			ID:             "hall",
			Shape:          "sq",
			Transformation: geom.Rotate90,
			Outline:        geom.Rectangle(4, 4),
		}},
	}
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer st.Close()

			old := NewRecord(testDoc("old", 1), "d1")
			old.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			recent := NewRecord(testDoc("recent", 2), "d1")
			recent.CreatedAt = old.CreatedAt.Add(time.Hour)

			for _, r := range []*Record{old, recent} {
				if err := st.Put(ctx, r); err != nil {
					t.Fatalf("Put: %v", err)
				}
			}

			got, err := st.Get(ctx, old.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Layout.Name != "old" || got.DescHash != "d1" || !got.CreatedAt.Equal(old.CreatedAt) {
				t.Errorf("Get = %+v", got)
			}
			if got.Layout.Rooms[0].Transformation != geom.Rotate90 {
				t.Errorf("transformation = %v", got.Layout.Rooms[0].Transformation)
			}

			list, err := st.List(ctx, 0)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(list) != 2 || list[0].ID != recent.ID || list[1].ID != old.ID {
				t.Errorf("List not newest first: %+v", list)
			}
			if list[0].Rooms != 1 || list[0].Seed != 2 || list[0].Name != "recent" {
				t.Errorf("summary = %+v", list[0])
			}
			if list, _ := st.List(ctx, 1); len(list) != 1 {
				t.Errorf("List(1) returned %d", len(list))
			}

			if err := st.Delete(ctx, old.ID); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := st.Get(ctx, old.ID); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after Delete = %v, want ErrNotFound", err)
			}
			if err := st.Delete(ctx, old.ID); err != nil {
				t.Errorf("Delete missing: %v", err)
			}
		})
	}
}

func TestNewRecordIDs(t *testing.T) {
	a := NewRecord(testDoc("a", 1), "h")
	b := NewRecord(testDoc("a", 1), "h")
	if a.ID == b.ID {
		t.Error("records share an ID")
	}
	if len(a.ID) != 36 {
		t.Errorf("ID %q is not a UUID", a.ID)
	}
}

func TestFileStoreRejectsBadIDs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if st.Path() != dir {
		t.Errorf("Path = %s", st.Path())
	}

	rec := NewRecord(testDoc("x", 1), "h")
	rec.ID = "../escape"
	if err := st.Put(ctx, rec); err == nil {
		t.Error("Put accepted a path-like ID")
	}
	if _, err := st.Get(ctx, "../escape"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get bad ID = %v", err)
	}
}

func TestFileStoreSkipsJunk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := st.Put(ctx, NewRecord(testDoc("ok", 1), "h")); err != nil {
		t.Fatal(err)
	}
	list, err := st.List(ctx, 0)
	if err != nil || len(list) != 1 {
		t.Errorf("List = %+v, %v", list, err)
	}
}

func TestRecordBSON(t *testing.T) {
	rec := NewRecord(testDoc("b", 9), "h")
	data, err := bson.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	var raw bson.M
	if err := bson.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["_id"] != rec.ID {
		t.Errorf("_id = %v, want %s", raw["_id"], rec.ID)
	}
	var back Record
	if err := bson.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Layout.Seed != 9 || back.Layout.Rooms[0].Outline[2] != geom.Pt(4, 4) {
		t.Errorf("round trip = %+v", back.Layout)
	}
}

func TestNewMongoStoreBadURI(t *testing.T) {
	_, err := NewMongoStore(context.Background(), MongoOptions{URI: "not-a-mongo-uri", Timeout: time.Second})
	if err == nil {
		t.Error("expected an error for a malformed URI")
	}
}
