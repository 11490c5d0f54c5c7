package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FlatFile is a Registry backed by a YAML (or JSON) index file.
type FlatFile struct {
	indexPath  string
	cacheDir   string
	httpClient *http.Client
	models     []ModelInfo
}

// flatFileIndex is the structure of the index file.
type flatFileIndex struct {
	Models []ModelInfo `yaml:"models"`
}

// NewFlatFile creates a FlatFile registry from an index file. An empty
// cacheDir uses DefaultCacheDir.
func NewFlatFile(indexPath string, cacheDir string) (*FlatFile, error) {
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}

	ff := &FlatFile{
		indexPath:  indexPath,
		cacheDir:   cacheDir,
		httpClient: http.DefaultClient,
	}

	if err := ff.load(); err != nil {
		return nil, err
	}

	return ff, nil
}

// load parses the index. YAML is a superset of JSON, so both parse here.
func (f *FlatFile) load() error {
	data, err := os.ReadFile(f.indexPath) //#nosec G304
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}

	var idx flatFileIndex
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("parse index: %w", err)
	}

	seen := make(map[string]bool, len(idx.Models))
	for i, m := range idx.Models {
		if m.Name == "" {
			return fmt.Errorf("parse index: model %d has no name", i)
		}
		if seen[m.Name] {
			return fmt.Errorf("parse index: duplicate model %q", m.Name)
		}
		seen[m.Name] = true
	}

	f.models = idx.Models
	return nil
}

// List returns models matching the given options.
func (f *FlatFile) List(_ context.Context, opts ...ListOption) ([]ModelInfo, error) {
	cfg := &listConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var result []ModelInfo
	for _, m := range f.models {
		if cfg.cased != nil && m.Cased != *cfg.cased {
			continue
		}
		if len(cfg.tags) > 0 && !hasAllTags(m.Tags, cfg.tags) {
			continue
		}
		result = append(result, m)
	}
	return result, nil
}

// Get returns a specific model by name or served name.
func (f *FlatFile) Get(_ context.Context, name string) (*ModelInfo, error) {
	for i := range f.models {
		if f.models[i].Name == name {
			return &f.models[i], nil
		}
	}
	for i := range f.models {
		if f.models[i].ServedName == name {
			return &f.models[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
}

// EnsureVocab downloads the model's vocab.txt if it is not cached (or the
// cached copy fails its checksum) and returns the local path.
func (f *FlatFile) EnsureVocab(ctx context.Context, name string) (string, error) {
	model, err := f.Get(ctx, name)
	if err != nil {
		return "", err
	}

	localPath := filepath.Join(f.cacheDir, model.Name, "vocab.txt")

	if _, err := os.Stat(localPath); err == nil {
		if model.VocabSHA256 == "" {
			return localPath, nil
		}
		if ok, _ := verifySHA256(localPath, model.VocabSHA256); ok {
			return localPath, nil
		}
		// Hash mismatch, fetch again
	}

	if model.VocabURL == "" {
		return "", fmt.Errorf("model %s has no vocab URL", model.Name)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}

	if err := f.download(ctx, model.VocabURL, localPath); err != nil {
		return "", fmt.Errorf("download vocab: %w", err)
	}

	if model.VocabSHA256 != "" {
		if ok, err := verifySHA256(localPath, model.VocabSHA256); err != nil {
			return "", fmt.Errorf("verify sha256: %w", err)
		} else if !ok {
			_ = os.Remove(localPath)
			return "", fmt.Errorf("sha256 mismatch for %s vocab", model.Name)
		}
	}

	return localPath, nil
}

func hasAllTags(modelTags, required []string) bool {
	tagSet := make(map[string]bool, len(modelTags))
	for _, t := range modelTags {
		tagSet[strings.ToLower(t)] = true
	}
	for _, r := range required {
		if !tagSet[strings.ToLower(r)] {
			return false
		}
	}
	return true
}

func verifySHA256(path, expected string) (bool, error) {
	f, err := os.Open(path) //#nosec G304
	if err != nil {
		return false, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}

	actual := hex.EncodeToString(h.Sum(nil))
	return strings.EqualFold(actual, expected), nil
}

// download writes url to a temp file beside dest and renames it into place,
// so readers never see a partial vocabulary.
func (f *FlatFile) download(ctx context.Context, url, dest string) (retErr error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".vocab-*")
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
