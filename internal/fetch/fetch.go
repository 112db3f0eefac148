// Package fetch resolves every asset referenced by a timeline to a local
// file path — the Asset Fetcher of the render pipeline (spec §4.3).
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/logger"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/metrics"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/storage"
	"github.com/scaleupwith-ai/ai-videographer-sub000/internal/telemetry"
	"go.uber.org/zap"
)

// desktopUserAgent is presented on the consent-page path, where some
// file-sharing hosts refuse to serve a direct download to non-browser
// clients.
const desktopUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const maxRedirects = 10
const maxConsentAttempts = 3

var confirmTokenPattern = regexp.MustCompile(`confirm=([0-9A-Za-z_-]+)`)
var downloadWarningCookiePattern = regexp.MustCompile(`download_warning`)

// Kind mirrors the Asset kinds referenced by a timeline (spec §3).
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindLogo  Kind = "logo"
)

func (k Kind) defaultExtension() string {
	switch k {
	case KindVideo:
		return ".mp4"
	case KindImage:
		return ".png"
	case KindAudio:
		return ".mp3"
	case KindLogo:
		return ".png"
	default:
		return ".bin"
	}
}

// Request names one asset reference from a timeline: a source to fetch
// and the key it will be looked up by at compile time (asset id, clip
// id, or a sentinel like "music").
type Request struct {
	Key      string
	URL      string
	Kind     Kind
	MIMEHint string
	IsGIF    bool
}

// Result is where a requested asset landed locally.
type Result struct {
	Key   string
	Path  string
	IsGIF bool
}

// Fetcher resolves a job's asset requests to local files inside a single
// scoped working directory, owned exclusively by the Controller for the
// job's lifetime.
type Fetcher struct {
	client  *http.Client
	workDir string
	s3      *storage.S3Uploader

	mu   sync.Mutex
	seen map[string]Result
}

// New creates a Fetcher rooted at workDir. s3 may be nil if no
// object-store presigning is needed for this job's asset URLs.
func New(workDir string, s3 *storage.S3Uploader) *Fetcher {
	jar, _ := cookiejar.New(nil)
	return &Fetcher{
		client: &http.Client{
			Jar:     jar,
			Timeout: 5 * time.Minute,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		workDir: workDir,
		s3:      s3,
		seen:    make(map[string]Result),
	}
}

// FetchAll resolves every request to a local path, deduplicating by key.
// Any single failure aborts the whole batch — spec §4.3 allows no
// partial renders.
func (f *Fetcher) FetchAll(ctx context.Context, reqs []Request) (map[string]Result, error) {
	return f.FetchAllWithProgress(ctx, reqs, nil)
}

// FetchAllWithProgress behaves like FetchAll but invokes onProgress after
// each asset finishes downloading, reporting (done, total) so a caller
// juggling many or slow downloads can checkpoint progress linearly
// instead of only at the start and end of the batch (spec §4.2).
func (f *Fetcher) FetchAllWithProgress(ctx context.Context, reqs []Request, onProgress func(done, total int)) (map[string]Result, error) {
	out := make(map[string]Result, len(reqs))
	total := len(reqs)

	var wg sync.WaitGroup
	errCh := make(chan error, len(reqs))
	var outMu sync.Mutex
	var done int32

	for _, req := range reqs {
		req := req
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.fetchOne(ctx, req)
			if err != nil {
				errCh <- fmt.Errorf("asset %s (%s): %w", req.Key, req.URL, err)
				return
			}
			outMu.Lock()
			out[req.Key] = res
			outMu.Unlock()
			if onProgress != nil {
				onProgress(int(atomic.AddInt32(&done, 1)), total)
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// fetchOne resolves a single request, reusing a prior download for the
// same key (spec §4.3 dedup invariant: an asset id is downloaded at
// most once per job).
func (f *Fetcher) fetchOne(ctx context.Context, req Request) (Result, error) {
	f.mu.Lock()
	if cached, ok := f.seen[req.Key]; ok {
		f.mu.Unlock()
		return cached, nil
	}
	f.mu.Unlock()

	sourceURL := req.URL
	var err error
	if f.s3 != nil && isObjectKey(sourceURL) {
		sourceURL, err = f.s3.PresignGet(ctx, strings.TrimPrefix(sourceURL, "s3://"), time.Hour)
		if err != nil {
			metrics.Get().AssetDownloadsTotal.WithLabelValues(string(req.Kind), "presign_failed").Inc()
			return Result{}, fmt.Errorf("presigning failed: %w", err)
		}
	}

	spanCtx, span := telemetry.TraceExternalCall(ctx, telemetry.ExternalServiceCallAttrs{
		Service:    "asset-fetcher",
		Operation:  "download",
		ResourceID: req.Key,
	})
	data, contentType, err := f.download(spanCtx, sourceURL)
	if err != nil {
		telemetry.RecordExternalCallError(span, err, 0, false)
		span.End()
		metrics.Get().AssetDownloadsTotal.WithLabelValues(string(req.Kind), "failed").Inc()
		return Result{}, err
	}
	telemetry.RecordExternalCallSuccess(span, 200, int64(len(data)))
	span.End()

	if len(data) == 0 {
		metrics.Get().AssetDownloadsTotal.WithLabelValues(string(req.Kind), "empty").Inc()
		return Result{}, fmt.Errorf("downloaded file is empty")
	}
	if len(data) < 1024 && looksLikeHTML(data) {
		metrics.Get().AssetDownloadsTotal.WithLabelValues(string(req.Kind), "html_masquerade").Inc()
		return Result{}, fmt.Errorf("response for %s looks like an HTML page, not media", sourceURL)
	}

	ext := inferExtension(req.Kind, sourceURL, req.MIMEHint, contentType)
	path := filepath.Join(f.workDir, fmt.Sprintf("%s_%s%s", sanitizeKey(req.Key), uuid.New().String()[:8], ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Result{}, fmt.Errorf("writing downloaded asset: %w", err)
	}

	res := Result{Key: req.Key, Path: path, IsGIF: req.IsGIF || strings.EqualFold(ext, ".gif")}

	f.mu.Lock()
	f.seen[req.Key] = res
	f.mu.Unlock()

	metrics.Get().AssetDownloadsTotal.WithLabelValues(string(req.Kind), "success").Inc()
	return res, nil
}

// download follows redirects and handles consent-page interstitials,
// implementing the state machine from spec Design Notes §9: init →
// fetching → redirect → consent-html → downloading → verified/failed.
func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	currentURL := rawURL
	consentAttempts := 0
	redirects := 0

	for {
		data, contentType, location, status, err := f.singleGet(ctx, currentURL)
		if err != nil {
			return nil, "", err
		}

		if isRedirectStatus(status) {
			redirects++
			if redirects > maxRedirects {
				return nil, "", fmt.Errorf("exceeded %d redirects fetching %s", maxRedirects, rawURL)
			}
			next, err := resolveRedirect(currentURL, location)
			if err != nil {
				return nil, "", err
			}
			currentURL = next
			continue
		}

		if strings.HasPrefix(contentType, "text/html") {
			if consentAttempts >= maxConsentAttempts {
				return nil, "", fmt.Errorf("exceeded %d consent-page attempts for %s", maxConsentAttempts, rawURL)
			}
			token, hasConsent := extractConsentToken(data, f.client, currentURL)
			if !hasConsent {
				return nil, "", fmt.Errorf("unexpected HTML response from %s", currentURL)
			}
			consentAttempts++
			currentURL = appendQueryParam(currentURL, "confirm", token)
			logger.Log.Info("asset fetcher followed consent page",
				zap.String("url", rawURL),
				zap.Int("attempt", consentAttempts),
			)
			continue
		}

		return data, contentType, nil
	}
}

// singleGet issues one HTTP GET with redirect-following disabled so the
// caller can apply the spec's own hop counting and Location resolution.
func (f *Fetcher) singleGet(ctx context.Context, rawURL string) (data []byte, contentType string, location string, status int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", "", 0, err
	}
	req.Header.Set("User-Agent", desktopUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<30)) // 2GiB safety cap
	if err != nil {
		return nil, "", "", 0, err
	}

	return body, resp.Header.Get("Content-Type"), resp.Header.Get("Location"), resp.StatusCode, nil
}

func isRedirectStatus(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther, http.StatusTemporaryRedirect:
		return true
	default:
		return false
	}
}

func resolveRedirect(base, location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("redirect response carried no Location header")
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(ref).String(), nil
}

// extractConsentToken scans an HTML body for a `confirm` token or
// `download_warning` cookie, per spec §4.3. The cookie jar already holds
// `download_warning` if the server set it on this response; we just
// need the confirm token out of the page body.
func extractConsentToken(body []byte, client *http.Client, pageURL string) (string, bool) {
	if m := confirmTokenPattern.FindSubmatch(body); m != nil {
		return string(m[1]), true
	}
	if u, err := url.Parse(pageURL); err == nil && client.Jar != nil {
		for _, c := range client.Jar.Cookies(u) {
			if downloadWarningCookiePattern.MatchString(c.Name) {
				return c.Value, true
			}
		}
	}
	return "", false
}

func appendQueryParam(rawURL, key, value string) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s%s=%s", rawURL, sep, key, url.QueryEscape(value))
}

func isObjectKey(u string) bool {
	return strings.HasPrefix(u, "s3://")
}

func looksLikeHTML(data []byte) bool {
	lower := bytes.ToLower(bytes.TrimSpace(data))
	return bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html"))
}

// inferExtension chooses a file extension by declared type when
// available, else by URL substring, else by MIME, else the kind's
// default (spec §4.3 extension-inference invariant).
// inferExtension picks a file extension in spec §4.3's declared order:
// the asset's declared MIME hint first, then the URL's own extension,
// then the response Content-Type, falling back to the kind's default.
func inferExtension(kind Kind, rawURL, mimeHint, contentType string) string {
	if mimeHint != "" {
		if exts, _ := mime.ExtensionsByType(mimeHint); len(exts) > 0 {
			return exts[0]
		}
	}
	if ext := filepath.Ext(stripQuery(rawURL)); ext != "" && len(ext) <= 5 {
		return ext
	}
	if contentType != "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			return exts[0]
		}
	}
	return kind.defaultExtension()
}

func stripQuery(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "asset"
	}
	return b.String()
}
