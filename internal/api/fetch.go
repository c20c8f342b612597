package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/ashureev/wa-gateway/internal/domain"
)

// HTTPFetcher downloads media with a plain GET.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher. A zero timeout means none.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads rawURL and captures its declared content type and bytes.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (domain.Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return domain.Media{}, fmt.Errorf("build media request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.Media{}, fmt.Errorf("fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Media{}, fmt.Errorf("fetch media: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Media{}, fmt.Errorf("read media body: %w", err)
	}

	mimetype := resp.Header.Get("Content-Type")
	if mimetype == "" {
		mimetype = http.DetectContentType(raw)
	}

	return domain.NewMedia(mimetype, raw, filenameFromURL(rawURL)), nil
}

// filenameFromURL returns the last path segment when it looks like a file
// name, else the default attachment name.
func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return domain.DefaultMediaFilename
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || path.Ext(base) == "" {
		return domain.DefaultMediaFilename
	}
	return base
}
