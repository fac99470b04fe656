// Package fetch retrieves style documents, tile metadata and sprites over
// HTTP or from local files, caching successful responses.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// Error is returned when server responds with anything but 200.
type Error struct {
	URL     string
	Status  int
	Content string
}

func (e *Error) Error() string {
	if len(e.Content) == 0 {
		return fmt.Sprintf("unable to fetch %s: %d %s", e.URL, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("unable to fetch %s: %d %s: %s", e.URL, e.Status, http.StatusText(e.Status), e.Content)
}

// maxErrorContent limits amount of response body kept in Error.
const maxErrorContent = 1024

// Options configure Fetcher.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// APIKey is appended as "key" query parameter to requests going to
	// APIHost.
	APIKey  string
	APIHost string
	// CacheSize is maximum total size of cached responses in bytes, 0
	// disables caching.
	CacheSize int64
	CacheTTL  time.Duration
}

// Fetcher reads URLs and local files. Safe for concurrent use.
type Fetcher struct {
	opts   Options
	client *http.Client
	cache  *ristretto.Cache
	log    *zap.Logger
}

func New(log *zap.Logger, opts Options) (*Fetcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Fetcher{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		log:    log.Named("fetch"),
	}
	if opts.CacheSize > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 10 * 1024, // number of keys to track frequency of
			MaxCost:     opts.CacheSize,
			BufferItems: 64, // number of keys per Get buffer
		})
		if err != nil {
			return nil, fmt.Errorf("unable to create response cache: %w", err)
		}
		f.cache = cache
	}
	return f, nil
}

// Close releases cache resources.
func (f *Fetcher) Close() {
	if f.cache != nil {
		f.cache.Close()
	}
}

// Fetch returns content of location which could be http(s) URL, file URL or
// local path.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) <= 1 {
		// not URL or windows drive letter
		return f.readFile(location)
	}
	switch u.Scheme {
	case "file":
		return f.readFile(u.Path)
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported location scheme %q", u.Scheme)
	}

	target := f.withKey(u)
	if f.cache != nil {
		if v, found := f.cache.Get(target); found {
			if data, ok := v.([]byte); ok {
				f.log.Debug("Cache hit", zap.String("url", redact(u)))
				return data, nil
			}
		}
	}

	data, err := f.get(ctx, target, redact(u))
	if err != nil {
		return nil, err
	}
	if f.cache != nil {
		f.cache.SetWithTTL(target, data, int64(len(data)), f.opts.CacheTTL)
		f.cache.Wait()
	}
	return data, nil
}

func (f *Fetcher) get(ctx context.Context, target, display string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if len(f.opts.UserAgent) > 0 {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch %s: %w", display, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read response from %s: %w", display, err)
	}
	f.log.Debug("Fetched",
		zap.String("url", display),
		zap.Int("status", resp.StatusCode),
		zap.Int("size", len(body)),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		content := strings.TrimSpace(string(body))
		if len(content) > maxErrorContent {
			content = content[:maxErrorContent]
		}
		return nil, &Error{URL: display, Status: resp.StatusCode, Content: content}
	}
	return body, nil
}

func (f *Fetcher) readFile(name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", name, err)
	}
	f.log.Debug("Read", zap.String("file", name), zap.Int("size", len(data)))
	return data, nil
}

func (f *Fetcher) withKey(u *url.URL) string {
	if len(f.opts.APIKey) == 0 || !strings.EqualFold(u.Hostname(), f.opts.APIHost) {
		return u.String()
	}
	c := *u
	q := c.Query()
	q.Set("key", f.opts.APIKey)
	c.RawQuery = q.Encode()
	return c.String()
}

// redact drops API key from URL so it could be logged.
func redact(u *url.URL) string {
	q := u.Query()
	if !q.Has("key") {
		return u.String()
	}
	c := *u
	q.Set("key", "***")
	c.RawQuery = q.Encode()
	return c.String()
}

var (
	// ErrTilesLocation is returned for locations pointing to vector tiles
	// rather than style document.
	ErrTilesLocation = errors.New("location points to tiles, not to style")
	// ErrStyleLocation is returned for locations which do not look like style
	// document.
	ErrStyleLocation = errors.New("invalid style location")
)

// CheckStyleLocation verifies location looks like style document: its path
// must end with ".json".
func CheckStyleLocation(location string) error {
	p := location
	if u, err := url.Parse(location); err == nil && len(u.Scheme) > 1 {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".json":
		return nil
	case ".pbf", ".mvt":
		return fmt.Errorf("%w: %s", ErrTilesLocation, location)
	}
	return fmt.Errorf("%w: %s", ErrStyleLocation, location)
}
