package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferExtension(t *testing.T) {
	tests := []struct {
		name        string
		kind        Kind
		url         string
		mimeHint    string
		contentType string
		want        string
	}{
		{"declared mime hint wins over url extension", KindVideo, "https://cdn.example.com/clip.mov?x=1", "video/mp4", "", ".mp4"},
		{"url extension used when no mime hint", KindVideo, "https://cdn.example.com/clip.mov?x=1", "", "", ".mov"},
		{"content type used as last resort", KindAudio, "https://cdn.example.com/asset", "", "audio/mpeg", ".mp3"},
		{"falls back to kind default", KindLogo, "https://cdn.example.com/asset", "", "", ".png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := inferExtension(tt.kind, tt.url, tt.mimeHint, tt.contentType)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeKey(t *testing.T) {
	assert.Equal(t, "scene-1_clip", sanitizeKey("scene-1_clip"))
	assert.Equal(t, "a_b_c", sanitizeKey("a/b c"))
	assert.Equal(t, "asset", sanitizeKey(""))
	assert.Equal(t, "asset", sanitizeKey("###"))
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, looksLikeHTML([]byte("<!DOCTYPE html><html></html>")))
	assert.True(t, looksLikeHTML([]byte("  <html><head></head></html>")))
	assert.False(t, looksLikeHTML([]byte{0x00, 0x01, 0x02, 0x03}))
}

func TestIsObjectKey(t *testing.T) {
	assert.True(t, isObjectKey("s3://bucket/key.mp4"))
	assert.False(t, isObjectKey("https://example.com/key.mp4"))
}

func TestAppendQueryParam(t *testing.T) {
	assert.Equal(t, "https://x.com/a?confirm=tok", appendQueryParam("https://x.com/a", "confirm", "tok"))
	assert.Equal(t, "https://x.com/a?b=1&confirm=tok", appendQueryParam("https://x.com/a?b=1", "confirm", "tok"))
}

func TestFetchAll_DownloadsAndDedupesByKey(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("fake-mp4-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := New(dir, nil)

	reqs := []Request{
		{Key: "scene-1", URL: srv.URL + "/clip.mp4", Kind: KindVideo},
		{Key: "scene-1", URL: srv.URL + "/clip.mp4", Kind: KindVideo},
	}

	results, err := f.FetchAll(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 1, hits, "duplicate key should be served from cache, not re-downloaded")

	res := results["scene-1"]
	assert.FileExists(t, res.Path)
	assert.True(t, filepath.Dir(res.Path) == dir)
}

func TestFetchAll_AbortsBatchOnSingleFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("fake-mp4-bytes"))
	}))
	defer srv.Close()

	f := New(t.TempDir(), nil)
	reqs := []Request{
		{Key: "good", URL: srv.URL + "/good.mp4", Kind: KindVideo},
		{Key: "bad", URL: srv.URL + "/bad", Kind: KindVideo},
	}

	_, err := f.FetchAll(context.Background(), reqs)
	require.Error(t, err)
}

func TestFetchAll_RejectsHTMLMasqueradingAsMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte("<html>not actually a video</html>"))
	}))
	defer srv.Close()

	f := New(t.TempDir(), nil)
	_, err := f.FetchAll(context.Background(), []Request{
		{Key: "scene-1", URL: srv.URL, Kind: KindVideo},
	})
	require.Error(t, err)
}

func TestFetchAll_RejectsEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
	}))
	defer srv.Close()

	f := New(t.TempDir(), nil)
	_, err := f.FetchAll(context.Background(), []Request{
		{Key: "scene-1", URL: srv.URL, Kind: KindVideo},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestFetchAll_FollowsRedirects(t *testing.T) {
	var redirectsServed int
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		redirectsServed++
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("fake-png-bytes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(t.TempDir(), nil)
	results, err := f.FetchAll(context.Background(), []Request{
		{Key: "logo", URL: srv.URL + "/start", Kind: KindImage},
	})
	require.NoError(t, err)
	require.Equal(t, 1, redirectsServed)
	assert.FileExists(t, results["logo"].Path)
}

func TestFetchAll_ExceedsRedirectLimit(t *testing.T) {
	mux := http.NewServeMux()
	var hop int
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		hop++
		http.Redirect(w, r, fmt.Sprintf("/loop?n=%d", hop), http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(t.TempDir(), nil)
	_, err := f.FetchAll(context.Background(), []Request{
		{Key: "loop", URL: srv.URL + "/loop", Kind: KindVideo},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirects")
}

func TestNew_CreatesUsableFetcherWithoutS3(t *testing.T) {
	dir := t.TempDir()
	f := New(dir, nil)
	require.NotNil(t, f)
	assert.Equal(t, dir, f.workDir)
	assert.Nil(t, f.s3)
	_, err := os.Stat(dir)
	require.NoError(t, err)
}
