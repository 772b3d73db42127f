package scraper

import (
	"compress/gzip"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reeldump/internal/pkg/metrics"
)

func newTestScraper() *Scraper {
	metrics.InitMetrics()
	return New("reeldump-test/1.0", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScrape_ExtractsThumbnailAndTitle(t *testing.T) {
	longTitle := strings.Repeat("x", 80)
	page := `<html><head>
		<meta name="twitter:image" content="https://cdn.example.com/thumb.jpg">
		<title>` + longTitle + `</title>
	</head><body></body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, page)
	}))
	defer srv.Close()

	meta := newTestScraper().Scrape(context.Background(), srv.URL)
	if meta.Thumbnail != "https://cdn.example.com/thumb.jpg" {
		t.Fatalf("unexpected thumbnail: %q", meta.Thumbnail)
	}
	if meta.Title != strings.Repeat("x", 50) {
		t.Fatalf("expected 50-char title prefix, got %d chars", len(meta.Title))
	}
}

func TestScrape_GzipBody(t *testing.T) {
	page := `<html><head><meta name="twitter:image" content="t.jpg"><title>clip</title></head></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			t.Errorf("expected gzip in Accept-Encoding, got %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = io.WriteString(gz, page)
		_ = gz.Close()
	}))
	defer srv.Close()

	meta := newTestScraper().Scrape(context.Background(), srv.URL)
	if meta.Thumbnail != "t.jpg" {
		t.Fatalf("unexpected thumbnail: %q", meta.Thumbnail)
	}
	if meta.Title != "clip" {
		t.Fatalf("unexpected title: %q", meta.Title)
	}
}

func TestScrape_NoMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html><head></head><body>nothing here</body></html>`)
	}))
	defer srv.Close()

	meta := newTestScraper().Scrape(context.Background(), srv.URL)
	if meta.Thumbnail != "" || meta.Title != "" {
		t.Fatalf("expected empty metadata, got %+v", meta)
	}
}

func TestScrape_UnreachableURL(t *testing.T) {
	// 端口立即拒绝连接
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	meta := newTestScraper().Scrape(context.Background(), srv.URL)
	if meta.Thumbnail != "" || meta.Title != "" {
		t.Fatalf("expected empty metadata on fetch failure, got %+v", meta)
	}
}

func TestScrape_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	meta := newTestScraper().Scrape(context.Background(), srv.URL)
	if meta.Thumbnail != "" || meta.Title != "" {
		t.Fatalf("expected empty metadata on error status, got %+v", meta)
	}
}

func TestTruncate_MultibyteSafe(t *testing.T) {
	s := strings.Repeat("视频剪辑收藏", 10) // 60 个字符
	got := truncate(s, 50)
	if len([]rune(got)) != 50 {
		t.Fatalf("expected 50 runes, got %d", len([]rune(got)))
	}
}
