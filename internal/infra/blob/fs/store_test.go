package fs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clinicstaff/internal/blob/core"
)

func TestPutWritesSidecarAndChecksum(t *testing.T) {
	root := t.TempDir()
	s, err := New(root, "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	info, err := s.Put(context.Background(), "exports/e1/report.pdf", bytes.NewReader([]byte("%PDF-")), core.PutOptions{
		ContentType: "application/pdf",
		Metadata:    map[string]string{"export_id": "e1"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ETag == "" || info.Size != 5 || info.Metadata["export_id"] != "e1" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := os.Stat(filepath.Join(root, "exports", "e1", "report.pdf.meta")); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	head, err := s.Head(context.Background(), "exports/e1/report.pdf")
	if err != nil || head.ContentType != "application/pdf" || head.ETag != info.ETag {
		t.Fatalf("head: %+v %v", head, err)
	}
}

func TestKeysCannotEscapeRoot(t *testing.T) {
	s, err := New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "../x", "/etc/passwd", "a/../../b", "x.meta"} {
		if _, err := s.Put(context.Background(), key, bytes.NewReader(nil), core.PutOptions{}); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestPresignURLUsesBaseURL(t *testing.T) {
	s, err := New(t.TempDir(), "http://localhost:8080/api/v1/artifacts/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if _, err := s.PresignURL(ctx, "missing.csv", core.SignedURLOptions{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.Put(ctx, "exports/e1/r.csv", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	u, err := s.PresignURL(ctx, "exports/e1/r.csv", core.SignedURLOptions{Method: "get"})
	if err != nil || u != "http://localhost:8080/api/v1/artifacts/exports/e1/r.csv" {
		t.Fatalf("unexpected url %q %v", u, err)
	}
	if _, err := s.PresignURL(ctx, "exports/e1/r.csv", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	if _, err := New(t.TempDir(), "://bad"); err == nil {
		t.Fatalf("expected base url error")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestPutReadFailureLeavesNothing(t *testing.T) {
	root := t.TempDir()
	s, _ := New(root, "")
	if _, err := s.Put(context.Background(), "k", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
	list, err := s.List(context.Background(), "")
	if err != nil || len(list) != 0 {
		t.Fatalf("failed put must not be listed: %+v %v", list, err)
	}
}
