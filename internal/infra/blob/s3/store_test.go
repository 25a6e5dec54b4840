package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"simago/internal/blob/core"
)

func TestStore_MockedBasicFlow(t *testing.T) {
	store := NewMockForTests()
	ctx := context.Background()
	info, err := store.Put(ctx, "runs/population.csv", strings.NewReader("hello"), core.PutOptions{ContentType: "text/csv", Metadata: map[string]string{"run_id": "r1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "runs/population.csv" || info.ContentType != "text/csv" || info.Size != 5 {
		t.Fatalf("unexpected info %#v", info)
	}
	if info.URL != "s3://mock-bucket/runs/population.csv" {
		t.Fatalf("unexpected url %s", info.URL)
	}
	if _, err := store.Put(ctx, "runs/population.csv", strings.NewReader("replaced"), core.PutOptions{}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	_, rc, err := store.Get(ctx, "runs/population.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "replaced" {
		t.Fatalf("get mismatch: %q", string(data))
	}
	if ok, err := store.Delete(ctx, "runs/population.csv"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "runs/population.csv"); err != nil || ok {
		t.Fatalf("second delete should report false: %v %v", ok, err)
	}
}

func TestStore_NotFoundMapping(t *testing.T) {
	store := NewMockForTests()
	ctx := context.Background()
	if _, err := store.Head(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
	if _, err := store.Put(ctx, " ", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
}

func TestStore_ListPaginatesAndStripsPrefix(t *testing.T) {
	store := NewMockForTests()
	store.prefix = normalizePrefix("/team/")
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := store.Put(ctx, fmt.Sprintf("exports/%d.csv", i), strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	list, err := store.List(ctx, "exports/")
	if err != nil || len(list) != 5 {
		t.Fatalf("expected five items across pages: %v %+v", err, list)
	}
	if list[0].Key != "exports/0.csv" || list[4].Key != "exports/4.csv" {
		t.Fatalf("prefix should be stripped and keys sorted: %+v", list)
	}
	if list, err := store.List(ctx, "missing/"); err != nil || len(list) != 0 {
		t.Fatalf("expected empty list: %v %+v", err, list)
	}
}

func TestStore_NewAndEnv(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
	s, err := New(context.Background(), Config{Bucket: "bkt", Endpoint: "https://mock.s3.local", PathStyle: true, AccessKeyID: "AKIA", SecretAccessKey: "SECRET"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Driver() != core.DriverS3 || s.prefix != "" {
		t.Fatalf("unexpected store %+v", s)
	}

	t.Setenv("SIMAGO_BLOB_S3_BUCKET", "")
	if _, err := OpenFromEnv(context.Background()); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	t.Setenv("SIMAGO_BLOB_S3_BUCKET", "env-bucket")
	t.Setenv("SIMAGO_BLOB_S3_PREFIX", "simago")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	s, err = OpenFromEnv(context.Background())
	if err != nil {
		t.Fatalf("OpenFromEnv: %v", err)
	}
	if s.bucket != "env-bucket" || s.prefix != "simago/" {
		t.Fatalf("unexpected env store %+v", s)
	}
}

func TestDecodeChunked(t *testing.T) {
	if _, ok := decodeChunked([]byte("not-chunked")); ok {
		t.Fatalf("expected failure for plain body")
	}
	if _, ok := decodeChunked([]byte("5\r\nabc")); ok {
		t.Fatalf("short chunk should fail")
	}
	b, ok := decodeChunked([]byte("5;chunk-signature=x\r\nhello\r\n3\r\n!!!\r\n0\r\nx-amz-checksum-crc32:abc\r\n\r\n"))
	if !ok || string(b) != "hello!!!" {
		t.Fatalf("unexpected decode %q %v", b, ok)
	}
}

func TestFakeS3Unsupported(t *testing.T) {
	rt := &fakeS3{objects: make(map[string]fakeObject)}
	req, _ := http.NewRequest(http.MethodPatch, "https://mock.s3.local/bucket/key", nil)
	resp, _ := rt.RoundTrip(req)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", resp.StatusCode)
	}
}
