// Package adapter stages optional adapter-weight ("LoRA") files supplied
// alongside generation requests. References arrive as URLs, data URLs or
// bare base64 payloads and are materialized into local safetensors files.
// Applying the weights is the generator's business, not this package's.
package adapter

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fluxserver/internal/domain"
	"fluxserver/internal/infra"
)

// maxHeaderBytes caps the safetensors JSON header read during validation.
const maxHeaderBytes = 16 << 20

// Loader fetches and validates adapter-weight references.
type Loader struct {
	dir    string
	client *http.Client
	logger infra.Logger
}

// NewLoader creates a Loader writing staged files under dir.
func NewLoader(dir string, logger infra.Logger) *Loader {
	return &Loader{
		dir:    dir,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Process resolves ref into a validated local file for the task, returning
// its path. Invalid or unreadable references yield an empty path and an
// error; the caller decides whether to proceed without the adapter.
func (l *Loader) Process(ctx context.Context, ref, taskID string) (string, error) {
	path, err := l.Fetch(ctx, ref, taskID)
	if err != nil {
		return "", err
	}
	if !l.Validate(path) {
		_ = os.Remove(path)
		return "", fmt.Errorf("adapter for task %s: %w", taskID, domain.ErrInvalidAdapter)
	}
	return path, nil
}

// Fetch materializes ref into <dir>/adapter_<taskID>.safetensors.
func (l *Loader) Fetch(ctx context.Context, ref, taskID string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("adapter: empty reference")
	}

	var data []byte
	var err error
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		data, err = l.download(ctx, ref)
	case strings.HasPrefix(ref, "data:"):
		data, err = decodeDataURL(ref)
	default:
		data, err = base64.StdEncoding.DecodeString(ref)
		if err != nil {
			err = fmt.Errorf("adapter: decode base64: %w", err)
		}
	}
	if err != nil {
		return "", err
	}

	path := filepath.Join(l.dir, fmt.Sprintf("adapter_%s.safetensors", taskID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("adapter: write %s: %w", path, err)
	}
	return path, nil
}

// Validate reports whether path holds a plausible safetensors file carrying
// LoRA tensors: an 8-byte little-endian header length, a JSON header, and at
// least one tensor key mentioning "lora".
func (l *Loader) Validate(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		l.logger.Warn().Err(err).Str("path", path).Msg("adapter: open for validation failed")
		return false
	}
	defer f.Close()

	var lenBuf [8]byte
	if _, err := io.ReadFull(f, lenBuf[:]); err != nil {
		return false
	}
	headerLen := binary.LittleEndian.Uint64(lenBuf[:])
	if headerLen == 0 || headerLen > maxHeaderBytes {
		return false
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}
	var tensors map[string]json.RawMessage
	if err := json.Unmarshal(header, &tensors); err != nil {
		return false
	}
	for key := range tensors {
		if key == "__metadata__" {
			continue
		}
		if strings.Contains(strings.ToLower(key), "lora") {
			return true
		}
	}
	l.logger.Warn().Str("path", path).Msg("adapter: no lora tensors in header")
	return false
}

func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("adapter: build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("adapter: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adapter: download: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("adapter: read body: %w", err)
	}
	return data, nil
}

func decodeDataURL(ref string) ([]byte, error) {
	_, payload, found := strings.Cut(ref, ",")
	if !found {
		return nil, errors.New("adapter: malformed data url")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("adapter: decode data url: %w", err)
	}
	return data, nil
}
