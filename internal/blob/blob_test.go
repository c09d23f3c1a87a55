package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, Config{FSRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if fsStore.Driver() != DriverFilesystem {
		t.Fatalf("expected fs default, got %s", fsStore.Driver())
	}
	mem, err := Open(ctx, Config{Driver: "MEMORY"})
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("open memory: %v", err)
	}
	if _, err := Open(ctx, Config{Driver: "gcs"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
}

// Every driver honours the same create-only contract.
func TestDriversShareContract(t *testing.T) {
	fsStore, err := Open(context.Background(), Config{FSRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	for _, store := range []Store{fsStore, NewMemory(), NewMockS3ForTests()} {
		t.Run(string(store.Driver()), func(t *testing.T) {
			ctx := context.Background()
			key := "exports/e1/produtividade.csv"
			if _, err := store.Put(ctx, key, bytes.NewReader([]byte("a,b\n")), PutOptions{ContentType: "text/csv"}); err != nil {
				t.Fatalf("put: %v", err)
			}
			if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), PutOptions{}); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}
			info, rc, err := store.Get(ctx, key)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			body, _ := io.ReadAll(rc)
			_ = rc.Close()
			if string(body) != "a,b\n" || info.Size != 4 {
				t.Fatalf("unexpected blob %q %+v", body, info)
			}
			if _, err := store.Head(ctx, "exports/missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			list, err := store.List(ctx, "exports/")
			if err != nil || len(list) != 1 || list[0].Key != key {
				t.Fatalf("list: %+v %v", list, err)
			}
			if ok, err := store.Delete(ctx, key); err != nil || !ok {
				t.Fatalf("delete: %v %v", ok, err)
			}
			if ok, err := store.Delete(ctx, key); err != nil || ok {
				t.Fatalf("second delete should report missing: %v %v", ok, err)
			}
		})
	}
}
