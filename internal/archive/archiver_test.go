package archive

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/fraudscrape/internal/model"
)

type fakeExtractor struct {
	mu    sync.Mutex
	calls []string
	fail  string
}

func (f *fakeExtractor) Section(_ context.Context, documentURL, item string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, item)
	f.mu.Unlock()
	if item == f.fail {
		return "", errors.New("extractor 500")
	}
	return "text of " + item + " in " + documentURL, nil
}

type memStore struct {
	objects map[string][]byte
	keys    []string
}

func (m *memStore) Put(_ context.Context, key string, body []byte) error {
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[key] = body
	m.keys = append(m.keys, key)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestArchiver_ArchiveJSON(t *testing.T) {
	store := &memStore{}
	a, err := NewArchiver(&fakeExtractor{}, store, Options{RunID: "run-1"}, nil)
	if err != nil {
		t.Fatalf("NewArchiver failed: %v", err)
	}
	a.now = fixedNow

	ref := model.FilingReference{DocumentURL: "https://sec.gov/10k.htm", CIK: "320193", Year: "2012"}
	key, err := a.Archive(context.Background(), ref, model.LabelFraudulent)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if key != "fraudulent/320193/2012.json" {
		t.Errorf("unexpected key %q", key)
	}

	var got model.ExtractedFiling
	if err := json.Unmarshal(store.objects[key], &got); err != nil {
		t.Fatalf("stored object is not JSON: %v", err)
	}
	if got.RunID != "run-1" || got.Label != model.LabelFraudulent || !got.ArchivedAt.Equal(fixedNow()) {
		t.Errorf("unexpected filing metadata %+v", got)
	}
	if len(got.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %v", got.Sections)
	}
	if got.Sections["7A"] != "text of 7A in https://sec.gov/10k.htm" {
		t.Errorf("unexpected 7A text %q", got.Sections["7A"])
	}
}

func TestArchiver_ArchiveYAMLNonFraud(t *testing.T) {
	store := &memStore{}
	a, err := NewArchiver(&fakeExtractor{}, store, Options{Encoding: "yaml", Sections: []string{"7"}}, nil)
	if err != nil {
		t.Fatalf("NewArchiver failed: %v", err)
	}
	if a.RunID() == "" {
		t.Error("expected a generated run id")
	}

	ref := model.FilingReference{DocumentURL: "https://sec.gov/peer.htm", CIK: "42", Year: "2011", PairedWith: "100"}
	key, err := a.Archive(context.Background(), ref, model.LabelNonFraudulent)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if key != "nonfraudulent/42/2011.yaml" {
		t.Errorf("unexpected key %q", key)
	}

	var got model.ExtractedFiling
	if err := yaml.Unmarshal(store.objects[key], &got); err != nil {
		t.Fatalf("stored object is not YAML: %v", err)
	}
	if got.PairedWith != "100" || got.CIK != "42" || len(got.Sections) != 1 {
		t.Errorf("unexpected filing %+v", got)
	}
}

func TestArchiver_ExtractErrorAborts(t *testing.T) {
	store := &memStore{}
	extractor := &fakeExtractor{fail: "7"}
	a, err := NewArchiver(extractor, store, Options{}, nil)
	if err != nil {
		t.Fatalf("NewArchiver failed: %v", err)
	}

	refs := []model.FilingReference{
		{DocumentURL: "u1", CIK: "1", Year: "2010"},
		{DocumentURL: "u2", CIK: "1", Year: "2011"},
	}
	n, err := a.ArchiveAll(context.Background(), refs, model.LabelFraudulent)
	if err == nil {
		t.Fatal("expected extraction error")
	}
	if n != 0 || len(store.keys) != 0 {
		t.Errorf("expected nothing archived, got n=%d keys=%v", n, store.keys)
	}
	for _, item := range extractor.calls {
		if item == "7A" {
			t.Error("sections after the failure must not be requested")
		}
	}
}

func TestArchiver_ArchiveAllConcurrentSections(t *testing.T) {
	store := &memStore{}
	a, err := NewArchiver(&fakeExtractor{}, store, Options{Workers: 3}, nil)
	if err != nil {
		t.Fatalf("NewArchiver failed: %v", err)
	}

	refs := []model.FilingReference{
		{DocumentURL: "u1", CIK: "1", Year: "2010"},
		{DocumentURL: "u2", CIK: "1", Year: "2011"},
	}
	n, err := a.ArchiveAll(context.Background(), refs, model.LabelFraudulent)
	if err != nil {
		t.Fatalf("ArchiveAll failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 archived, got %d", n)
	}
	if store.keys[0] != "fraudulent/1/2010.json" || store.keys[1] != "fraudulent/1/2011.json" {
		t.Errorf("unexpected keys %v", store.keys)
	}
}

func TestNewEncoder(t *testing.T) {
	tests := []struct {
		name    string
		ext     string
		wantErr bool
	}{
		{"", "json", false},
		{"json", "json", false},
		{"yaml", "yaml", false},
		{"yml", "yaml", false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		enc, err := NewEncoder(tt.name)
		if tt.wantErr {
			if !errors.Is(err, model.ErrInvalidConfig) {
				t.Errorf("NewEncoder(%q): expected ErrInvalidConfig, got %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewEncoder(%q) failed: %v", tt.name, err)
			continue
		}
		if enc.Ext() != tt.ext {
			t.Errorf("NewEncoder(%q).Ext() = %q, want %q", tt.name, enc.Ext(), tt.ext)
		}
	}
}
