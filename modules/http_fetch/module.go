package http_fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/vk/provision/internal/ctxlog"
	"github.com/vk/provision/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// httpClient is shared by all http_fetch executions to reuse TCP connections.
var httpClient = &http.Client{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	URL    string `hcl:"url"`
	Dest   string `hcl:"dest"`
	SHA256 string `hcl:"sha256,optional"`
	Mode   string `hcl:"mode,optional"`
}

// OnRunHTTPFetch is the handler for the 'http_fetch' runner. It downloads a
// URL to a local path, optionally verifying a SHA-256 checksum. The file is
// written to a temporary name and renamed into place only after the download
// and checksum succeed, so a failed fetch never leaves a partial file behind.
func OnRunHTTPFetch(ctx context.Context, input *Input) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create request for '%s': %w", input.URL, err)
	}

	logger.Info("Fetching URL.", "url", input.URL, "dest", input.Dest)

	resp, err := httpClient.Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to fetch '%s': %w", input.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cty.NilVal, fmt.Errorf("fetch of '%s' failed with status: %s", input.URL, resp.Status)
	}

	destDir := filepath.Dir(input.Dest)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return cty.NilVal, fmt.Errorf("failed to create destination directory '%s': %w", destDir, err)
	}

	tmp, err := os.CreateTemp(destDir, filepath.Base(input.Dest)+".partial-*")
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to download '%s': %w", input.URL, err)
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	if input.SHA256 != "" && !strings.EqualFold(sum, input.SHA256) {
		return cty.NilVal, fmt.Errorf("checksum mismatch for '%s': expected %s, got %s", input.URL, strings.ToLower(input.SHA256), sum)
	}

	mode := os.FileMode(0o644)
	if input.Mode != "" {
		parsed, err := strconv.ParseUint(input.Mode, 8, 32)
		if err != nil {
			return cty.NilVal, fmt.Errorf("invalid file mode '%s': %w", input.Mode, err)
		}
		mode = os.FileMode(parsed)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return cty.NilVal, fmt.Errorf("failed to set file mode on '%s': %w", input.Dest, err)
	}

	if err := os.Rename(tmp.Name(), input.Dest); err != nil {
		return cty.NilVal, fmt.Errorf("failed to move download into place at '%s': %w", input.Dest, err)
	}

	logger.Info("Fetched file.", "dest", input.Dest, "size", size, "sha256", sum)

	return cty.ObjectVal(map[string]cty.Value{
		"path":   cty.StringVal(input.Dest),
		"size":   cty.NumberIntVal(size),
		"sha256": cty.StringVal(sum),
	}), nil
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunHTTPFetch", &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnRunHTTPFetch,
	})
}
