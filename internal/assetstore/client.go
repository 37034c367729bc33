// Package assetstore is the client for the remote media store that
// serves chart backgrounds and audio. The store exposes a token-secured
// JSON filesystem API; uploaded files become publicly reachable under
// the store's download prefix.
package assetstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// PublicPathPrefix is the path segment the store prepends to public
// download URLs. It is not part of the stored folder layout.
const PublicPathPrefix = "d"

// Config identifies the remote store instance.
type Config struct {
	// Domain is the store base URL, e.g. "https://assets.example.com".
	Domain string

	// APIToken authorizes upload and delete calls.
	APIToken string

	// UploadFolder is the base folder all imports live under. Empty
	// means the default root chosen by the core.
	UploadFolder string
}

// Store is the collaborator contract the core imports against. Upload
// returns the public URL of the stored file.
type Store interface {
	Upload(ctx context.Context, localPath, remoteFolder string) (string, error)
	Delete(ctx context.Context, remotePath string, recursive bool) error
}

// Client is the HTTP implementation of Store.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a Client for the configured store.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// apiResponse is the store's JSON envelope. Code mirrors HTTP semantics
// even when the transport status is 200.
type apiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Upload stores the file at localPath inside remoteFolder and returns
// its public download URL.
func (c *Client) Upload(ctx context.Context, localPath, remoteFolder string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %q: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %q: %w", localPath, err)
	}

	remotePath := path.Join("/", remoteFolder, filepath.Base(localPath))
	endpoint := strings.TrimRight(c.cfg.Domain, "/") + "/api/fs/put"

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, f)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.APIToken)
	req.Header.Set("File-Path", encodeRemotePath(remotePath))
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = info.Size()

	if err := c.do(req); err != nil {
		return "", fmt.Errorf("upload %q: %w", remotePath, err)
	}
	return c.PublicURL(remotePath), nil
}

// Delete removes remotePath from the store. With recursive set the path
// is treated as a folder and removed with everything under it.
func (c *Client) Delete(ctx context.Context, remotePath string, recursive bool) error {
	remotePath = path.Join("/", remotePath)
	payload := struct {
		Dir   string   `json:"dir"`
		Names []string `json:"names"`
	}{
		Dir:   path.Dir(remotePath),
		Names: []string{path.Base(remotePath)},
	}
	_ = recursive // folder removal on this store is always recursive

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode delete request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.Domain, "/") + "/api/fs/remove"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	if err := c.do(req); err != nil {
		return fmt.Errorf("delete %q: %w", remotePath, err)
	}
	return nil
}

// PublicURL returns the public download URL for a stored path.
func (c *Client) PublicURL(remotePath string) string {
	return strings.TrimRight(c.cfg.Domain, "/") + "/" + PublicPathPrefix + encodeRemotePath(path.Join("/", remotePath))
}

// do executes a request and decodes the store's envelope, failing on
// non-2xx transport status or a non-200 envelope code.
func (c *Client) do(req *http.Request) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("store returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("malformed store response: %w", err)
	}
	if envelope.Code != 200 {
		return fmt.Errorf("store rejected request (code %d): %s", envelope.Code, envelope.Message)
	}
	return nil
}

// encodeRemotePath percent-encodes each path segment while keeping the
// separators readable.
func encodeRemotePath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
