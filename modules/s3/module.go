package s3

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/vk/provision/internal/ctxlog"
	"github.com/vk/provision/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// httpClient is a shared client for all S3 runner executions to reuse TCP connections.
var httpClient = &http.Client{}

// Input defines the arguments for the 'arguments' HCL block.
type Input struct {
	Action      string `hcl:"action"`
	SourcePath  string `hcl:"source_path,optional"`
	UploadURL   string `hcl:"upload_url,optional"`
	DownloadURL string `hcl:"download_url,optional"`
	DestPath    string `hcl:"dest_path,optional"`
}

// handleUpload contains the logic for uploading a file to a pre-signed URL.
func handleUpload(ctx context.Context, input *Input) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("action", "upload")

	if input.SourcePath == "" || input.UploadURL == "" {
		return cty.NilVal, fmt.Errorf("s3 upload requires both 'source_path' and 'upload_url'")
	}

	file, err := os.Open(input.SourcePath)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to open source file '%s': %w", input.SourcePath, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to get file stats for '%s': %w", input.SourcePath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, input.UploadURL, file)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create S3 upload request: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(input.SourcePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	logger.Info("Uploading file to S3", "source", input.SourcePath, "size", stat.Size(), "contentType", contentType)

	resp, err := httpClient.Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to execute S3 upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cty.NilVal, fmt.Errorf("S3 upload failed with status: %s", resp.Status)
	}

	logger.Info("Successfully uploaded file", "status", resp.Status)

	return cty.ObjectVal(map[string]cty.Value{
		"success": cty.BoolVal(true),
		"status":  cty.StringVal(resp.Status),
		"path":    cty.StringVal(input.SourcePath),
		"size":    cty.NumberIntVal(stat.Size()),
	}), nil
}

// handleDownload contains the logic for fetching an object from a pre-signed URL.
func handleDownload(ctx context.Context, input *Input) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("action", "download")

	if input.DownloadURL == "" || input.DestPath == "" {
		return cty.NilVal, fmt.Errorf("s3 download requires both 'download_url' and 'dest_path'")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.DownloadURL, nil)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create S3 download request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to execute S3 download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cty.NilVal, fmt.Errorf("S3 download failed with status: %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(input.DestPath), 0o755); err != nil {
		return cty.NilVal, fmt.Errorf("failed to create destination directory: %w", err)
	}

	out, err := os.Create(input.DestPath)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create destination file '%s': %w", input.DestPath, err)
	}

	size, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to write S3 object to '%s': %w", input.DestPath, err)
	}

	logger.Info("Successfully downloaded object", "dest", input.DestPath, "size", size)

	return cty.ObjectVal(map[string]cty.Value{
		"success": cty.BoolVal(true),
		"status":  cty.StringVal(resp.Status),
		"path":    cty.StringVal(input.DestPath),
		"size":    cty.NumberIntVal(size),
	}), nil
}

// OnRunS3 is the handler for the 's3' runner's on_run lifecycle event.
func OnRunS3(ctx context.Context, input *Input) (cty.Value, error) {
	switch strings.ToLower(input.Action) {
	case "upload":
		return handleUpload(ctx, input)
	case "download":
		return handleDownload(ctx, input)
	default:
		return cty.NilVal, fmt.Errorf("unknown s3 action: '%s'", input.Action)
	}
}

// Register registers the handler with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterRunner("OnRunS3", &registry.RegisteredRunner{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		Fn:        OnRunS3,
	})
}
