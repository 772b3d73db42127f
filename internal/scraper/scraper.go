// Package scraper 从外部页面提取展示元数据。
//
// 抓取是尽力而为的：网络错误、非 2xx 响应或解析失败都只记日志并
// 返回空结果，绝不向调用方传播错误，保存流程不因抓取失败而中断。
package scraper

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"reeldump/internal/pkg/metrics"
)

// maxTitleLen 页面标题截断长度（按字符计）。
const maxTitleLen = 50

// Metadata 是从页面中提取到的展示元数据。
// 字段为空表示对应内容缺失或抓取失败。
type Metadata struct {
	Thumbnail string // meta[name=twitter:image] 的 content 属性
	Title     string // <title> 文本，截断到 maxTitleLen 字符
}

// Scraper 抓取页面并提取元数据。
type Scraper struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

// New 创建 Scraper。超时与重定向策略沿用 http.Client 默认值。
func New(userAgent string, logger *slog.Logger) *Scraper {
	return &Scraper{
		client:    &http.Client{},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Scrape 抓取 pageURL 并提取缩略图与标题。
//
// 请求显式声明压缩传输，因此响应体需要按 Content-Encoding 手工解码
// （显式设置 Accept-Encoding 会关闭 net/http 的透明 gzip 解压）。
func (s *Scraper) Scrape(ctx context.Context, pageURL string) Metadata {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		s.fail(pageURL, "build request", err)
		return Metadata{}
	}
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.fail(pageURL, "fetch", err)
		return Metadata{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.fail(pageURL, "fetch", nil, slog.Int("status", resp.StatusCode))
		return Metadata{}
	}

	body, err := decodeBody(resp)
	if err != nil {
		s.fail(pageURL, "decode body", err)
		return Metadata{}
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		s.fail(pageURL, "parse html", err)
		return Metadata{}
	}

	meta := extract(doc)
	if metrics.ScrapeTotal != nil {
		metrics.ScrapeTotal.WithLabelValues("ok").Inc()
	}
	if s.logger != nil {
		s.logger.Debug("scrape done",
			slog.String("url", pageURL),
			slog.Bool("thumbnail", meta.Thumbnail != ""),
			slog.Bool("title", meta.Title != ""),
		)
	}
	return meta
}

// decodeBody 根据 Content-Encoding 解码响应体。
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "deflate":
		return flate.NewReader(resp.Body), nil
	default:
		return io.NopCloser(resp.Body), nil
	}
}

func extract(doc *goquery.Document) Metadata {
	meta := Metadata{}
	if content, ok := doc.Find("head meta[name='twitter:image']").Attr("content"); ok {
		meta.Thumbnail = content
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	meta.Title = truncate(title, maxTitleLen)
	return meta
}

// truncate 按字符截断，避免把多字节字符切断。
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func (s *Scraper) fail(pageURL, stage string, err error, extra ...slog.Attr) {
	if metrics.ScrapeTotal != nil {
		metrics.ScrapeTotal.WithLabelValues("failed").Inc()
	}
	if s.logger == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("url", pageURL),
		slog.String("stage", stage),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	attrs = append(attrs, extra...)
	s.logger.LogAttrs(context.Background(), slog.LevelWarn, "scrape failed", attrs...)
}
