// ABOUTME: Audio resource fetcher for HTTP(S) URLs and local files
// ABOUTME: Retrieves encoded audio bytes with context cancellation
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrEmptyResource = errors.New("empty resource reference")
	ErrTooLarge      = errors.New("resource exceeds size limit")
)

// StatusError reports a non-200 HTTP response
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
}

// Resource is a fetched audio asset
type Resource struct {
	Ref         string // the reference as supplied by the caller
	Name        string // last path element, used for extension sniffing
	ContentType string // media type without parameters, empty for local files
	Data        []byte
}

// Config holds fetcher configuration
type Config struct {
	Client    *http.Client
	MaxBytes  int64 // 0 means unlimited
	UserAgent string
	Logger    *zap.SugaredLogger
}

// Fetcher retrieves audio resources. It holds no per-resource state and
// is safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
	logger    *zap.SugaredLogger
}

// New creates a fetcher
func New(config Config) *Fetcher {
	client := config.Client
	if client == nil {
		client = &http.Client{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Fetcher{
		client:    client,
		maxBytes:  config.MaxBytes,
		userAgent: config.UserAgent,
		logger:    logger,
	}
}

// Fetch retrieves the resource behind ref: an http(s) URL, a file:// URL or
// a local path.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (*Resource, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, ErrEmptyResource
	}

	u, err := url.Parse(ref)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return f.fetchHTTP(ctx, ref, u)
		case "file":
			return f.fetchFile(ctx, ref, u.Path)
		}
	}
	return f.fetchFile(ctx, ref, ref)
}

func (f *Fetcher) fetchHTTP(ctx context.Context, ref string, u *url.URL) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	f.logger.Debugw("fetching audio resource", "url", ref)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch resource: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: ref, StatusCode: resp.StatusCode}
	}

	data, err := f.readAll(resp.Body)
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, perr := mime.ParseMediaType(contentType); perr == nil {
		contentType = mediaType
	}

	f.logger.Debugw("fetched audio resource", "url", ref, "bytes", len(data), "content_type", contentType)
	return &Resource{
		Ref:         ref,
		Name:        path.Base(u.Path),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func (f *Fetcher) fetchFile(ctx context.Context, ref, filePath string) (*Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open resource: %w", err)
	}
	defer file.Close()

	data, err := f.readAll(file)
	if err != nil {
		return nil, err
	}

	f.logger.Debugw("read audio file", "path", filePath, "bytes", len(data))
	return &Resource{
		Ref:  ref,
		Name: filepath.Base(filePath),
		Data: data,
	}, nil
}

func (f *Fetcher) readAll(r io.Reader) ([]byte, error) {
	if f.maxBytes > 0 {
		r = io.LimitReader(r, f.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource: %w", err)
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes)
	}
	return data, nil
}

// Extension returns the lower-case extension of the resource name
func (r *Resource) Extension() string {
	return strings.ToLower(filepath.Ext(r.Name))
}
