package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

const testVocab = "[PAD]\n[UNK]\n[CLS]\n[SEP]\nprice\n"

func sha(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// vocabServer serves testVocab and counts requests.
func vocabServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/vocab.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(testVocab))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testIndex(base string) string {
	return `models:
  - name: bert-large-uncased-whole-word-masking-finetuned-squad
    description: BERT large, whole word masking, SQuAD v1.1
    served_name: bert-squad
    vocab_url: ` + base + `/vocab.txt
    vocab_sha256: ` + sha(testVocab) + `
    max_sequence_length: 512
    tags: [squad, large]
  - name: distilbert-base-cased-distilled-squad
    vocab_url: ` + base + `/vocab.txt
    max_sequence_length: 384
    cased: true
    tags: [squad, small]
  - name: no-vocab
    tags: [broken]
`
}

// writeTestIndex writes the index into dir and opens it.
func writeTestIndex(t *testing.T, dir, content string) *FlatFile {
	t.Helper()
	indexPath := filepath.Join(dir, "models.yaml")
	if err := os.WriteFile(indexPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test index: %v", err)
	}
	ff, err := NewFlatFile(indexPath, filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("NewFlatFile() returned unexpected error: %v", err)
	}
	return ff
}

// --- NewFlatFile ---

func TestNewFlatFile_ValidIndex(t *testing.T) {
	ff := writeTestIndex(t, t.TempDir(), testIndex("http://localhost"))
	if len(ff.models) != 3 {
		t.Fatalf("expected 3 models, got %d", len(ff.models))
	}
	if ff.models[0].MaxSequenceLength != 512 || ff.models[1].Cased != true {
		t.Errorf("fields not parsed: %+v", ff.models[:2])
	}
}

func TestNewFlatFile_JSONIndex(t *testing.T) {
	ff := writeTestIndex(t, t.TempDir(), `{"models": [{"name": "a", "tags": ["x"]}]}`)
	if len(ff.models) != 1 || ff.models[0].Name != "a" {
		t.Errorf("models = %+v", ff.models)
	}
}

func TestNewFlatFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{name: "invalid", content: "models: [unclosed", wantMsg: "parse index"},
		{name: "missing name", content: "models:\n  - description: x\n", wantMsg: "no name"},
		{name: "duplicate", content: "models:\n  - name: a\n  - name: a\n", wantMsg: "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "models.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := NewFlatFile(path, t.TempDir())
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %v", tt.wantMsg, err)
			}
		})
	}

	if _, err := NewFlatFile("/nonexistent/path/index.yaml", t.TempDir()); err == nil {
		t.Error("expected error for missing index")
	}
}

func TestNewFlatFile_DefaultCacheDir(t *testing.T) {
	t.Setenv("SHOPQA_MODEL_CACHE", "/tmp/shopqa-cache-test")
	path := filepath.Join(t.TempDir(), "models.yaml")
	if err := os.WriteFile(path, []byte("models: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ff, err := NewFlatFile(path, "")
	if err != nil {
		t.Fatalf("NewFlatFile() returned unexpected error: %v", err)
	}
	if ff.cacheDir != "/tmp/shopqa-cache-test" {
		t.Errorf("cacheDir = %q", ff.cacheDir)
	}
}

// --- List ---

func TestFlatFile_List(t *testing.T) {
	ff := writeTestIndex(t, t.TempDir(), testIndex("http://localhost"))

	tests := []struct {
		name string
		opts []ListOption
		want int
	}{
		{name: "no filters", want: 3},
		{name: "tag", opts: []ListOption{WithTags("squad")}, want: 2},
		{name: "tag case-insensitive", opts: []ListOption{WithTags("SMALL")}, want: 1},
		{name: "all tags", opts: []ListOption{WithTags("squad", "large")}, want: 1},
		{name: "unknown tag", opts: []ListOption{WithTags("onnx")}, want: 0},
		{name: "cased", opts: []ListOption{WithCased(true)}, want: 1},
		{name: "uncased", opts: []ListOption{WithCased(false)}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models, err := ff.List(context.Background(), tt.opts...)
			if err != nil {
				t.Fatalf("List() returned unexpected error: %v", err)
			}
			if len(models) != tt.want {
				t.Errorf("List(): expected %d models, got %d", tt.want, len(models))
			}
		})
	}
}

// --- Get ---

func TestFlatFile_Get(t *testing.T) {
	ff := writeTestIndex(t, t.TempDir(), testIndex("http://localhost"))

	m, err := ff.Get(context.Background(), "distilbert-base-cased-distilled-squad")
	if err != nil || m.MaxSequenceLength != 384 {
		t.Errorf("Get() = %+v, %v", m, err)
	}

	m, err = ff.Get(context.Background(), "bert-squad")
	if err != nil || m.Name != "bert-large-uncased-whole-word-masking-finetuned-squad" {
		t.Errorf("Get(served name) = %+v, %v", m, err)
	}

	_, err = ff.Get(context.Background(), "gpt")
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}
}

// --- EnsureVocab ---

func TestFlatFile_EnsureVocab_DownloadsOnce(t *testing.T) {
	srv, hits := vocabServer(t)
	ff := writeTestIndex(t, t.TempDir(), testIndex(srv.URL))
	name := "bert-large-uncased-whole-word-masking-finetuned-squad"

	path, err := ff.EnsureVocab(context.Background(), name)
	if err != nil {
		t.Fatalf("EnsureVocab() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != testVocab {
		t.Fatalf("cached vocab = %q, %v", data, err)
	}
	if filepath.Base(filepath.Dir(path)) != name {
		t.Errorf("vocab cached at %q, want a per-model directory", path)
	}

	again, err := ff.EnsureVocab(context.Background(), name)
	if err != nil || again != path {
		t.Errorf("second EnsureVocab() = %q, %v", again, err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 download, got %d", hits.Load())
	}
}

func TestFlatFile_EnsureVocab_RefetchesCorruptCache(t *testing.T) {
	srv, hits := vocabServer(t)
	ff := writeTestIndex(t, t.TempDir(), testIndex(srv.URL))
	name := "bert-large-uncased-whole-word-masking-finetuned-squad"

	path := filepath.Join(ff.cacheDir, name, "vocab.txt")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("corrupt"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ff.EnsureVocab(context.Background(), name); err != nil {
		t.Fatalf("EnsureVocab() error = %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected a re-download, got %d requests", hits.Load())
	}
	if data, _ := os.ReadFile(path); string(data) != testVocab {
		t.Errorf("vocab not replaced: %q", data)
	}
}

func TestFlatFile_EnsureVocab_ChecksumMismatch(t *testing.T) {
	srv, _ := vocabServer(t)
	index := "models:\n  - name: bad\n    vocab_url: " + srv.URL + "/vocab.txt\n    vocab_sha256: " + sha("other") + "\n"
	ff := writeTestIndex(t, t.TempDir(), index)

	_, err := ff.EnsureVocab(context.Background(), "bad")
	if err == nil || !strings.Contains(err.Error(), "sha256 mismatch") {
		t.Fatalf("expected sha256 mismatch, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(ff.cacheDir, "bad", "vocab.txt")); !os.IsNotExist(err) {
		t.Error("mismatched vocab should be removed")
	}
}

func TestFlatFile_EnsureVocab_Errors(t *testing.T) {
	srv, _ := vocabServer(t)
	index := testIndex(srv.URL) + "  - name: missing\n    vocab_url: " + srv.URL + "/missing.txt\n"
	ff := writeTestIndex(t, t.TempDir(), index)

	tests := []struct {
		name    string
		model   string
		wantErr string
	}{
		{name: "unknown model", model: "gpt", wantErr: "model not found"},
		{name: "no url", model: "no-vocab", wantErr: "no vocab URL"},
		{name: "http error", model: "missing", wantErr: "HTTP 404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ff.EnsureVocab(context.Background(), tt.model)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	entries, _ := os.ReadDir(filepath.Join(ff.cacheDir, "missing"))
	if len(entries) != 0 {
		t.Errorf("failed download left files behind: %v", entries)
	}
}

func TestFlatFile_EnsureVocab_Cancelled(t *testing.T) {
	srv, _ := vocabServer(t)
	ff := writeTestIndex(t, t.TempDir(), testIndex(srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ff.EnsureVocab(ctx, "distilbert-base-cased-distilled-squad")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
