package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ppiankov/fraudscrape/internal/model"
)

type fakeS3 struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_Put(t *testing.T) {
	fake := &fakeS3{}
	store := NewS3Store(fake, "filings")

	key := model.ObjectKey(model.LabelFraudulent, "320193", "2012", "json")
	if err := store.Put(context.Background(), key, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if len(fake.inputs) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(fake.inputs))
	}
	in := fake.inputs[0]
	if aws.ToString(in.Bucket) != "filings" {
		t.Errorf("unexpected bucket %q", aws.ToString(in.Bucket))
	}
	if aws.ToString(in.Key) != "fraudulent/320193/2012.json" {
		t.Errorf("unexpected key %q", aws.ToString(in.Key))
	}
	if aws.ToString(in.ContentType) != "application/json" {
		t.Errorf("unexpected content type %q", aws.ToString(in.ContentType))
	}
	if string(fake.bodies[0]) != `{"ok":true}` {
		t.Errorf("unexpected body %q", fake.bodies[0])
	}
}

func TestLocalStore_Put(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)

	if err := store.Put(context.Background(), "nonfraudulent/42/2015.yaml", []byte("a: b\n")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "nonfraudulent", "42", "2015.yaml"))
	if err != nil {
		t.Fatalf("expected file written: %v", err)
	}
	if string(data) != "a: b\n" {
		t.Errorf("unexpected content %q", data)
	}

	// Same key overwrites
	if err := store.Put(context.Background(), "nonfraudulent/42/2015.yaml", []byte("c: d\n")); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(dir, "nonfraudulent", "42", "2015.yaml"))
	if string(data) != "c: d\n" {
		t.Errorf("expected overwrite, got %q", data)
	}
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	for _, key := range []string{"", "/", "../outside.json", "a/../../b.json"} {
		if err := store.Put(context.Background(), key, []byte("x")); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}

func TestOpenObjectStore(t *testing.T) {
	ctx := context.Background()

	local, err := OpenObjectStore(ctx, model.StorageConfig{Backend: "local", LocalDir: t.TempDir()}, aws.Config{})
	if err != nil {
		t.Fatalf("local backend failed: %v", err)
	}
	if _, ok := local.(*LocalStore); !ok {
		t.Errorf("expected *LocalStore, got %T", local)
	}

	remote, err := OpenObjectStore(ctx, model.StorageConfig{Backend: "s3", Bucket: "b"}, aws.Config{Region: "us-east-1"})
	if err != nil {
		t.Fatalf("s3 backend failed: %v", err)
	}
	if _, ok := remote.(*S3Store); !ok {
		t.Errorf("expected *S3Store, got %T", remote)
	}

	_, err = OpenObjectStore(ctx, model.StorageConfig{Backend: "ftp"}, aws.Config{})
	if !errors.Is(err, model.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a/b/2010.json": "application/json",
		"a/b/2010.YAML": "application/yaml",
		"a/b/2010.yml":  "application/yaml",
		"a/b/2010.bin":  "application/octet-stream",
	}
	for key, want := range tests {
		if got := contentType(key); got != want {
			t.Errorf("contentType(%q) = %q, want %q", key, got, want)
		}
	}
}
