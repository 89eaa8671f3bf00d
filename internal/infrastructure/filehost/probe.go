// Package filehost talks to the hosts that serve variant files.
package filehost

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/heuristics"
)

var pixeldrainShare = regexp.MustCompile(`^(https?://(?:www\.)?pixeldrain\.com)/u/([A-Za-z0-9]+)/?$`)

// NormalizeURL rewrites PixelDrain share pages (/u/{id}) to the direct
// file endpoint (/api/file/{id}). Other URLs are returned unchanged.
func NormalizeURL(raw string) string {
	if m := pixeldrainShare.FindStringSubmatch(raw); m != nil {
		return m[1] + "/api/file/" + m[2]
	}
	return raw
}

// ProbeResult is what a HEAD request revealed about a remote file.
// Fields that could not be determined hold media.UnknownSize.
type ProbeResult struct {
	URL  string
	Name string
	Size string
	OK   bool
}

// Prober reads remote file names and sizes.
type Prober struct {
	client *http.Client
	logger *zap.Logger
}

// NewProber creates a prober whose requests time out after timeout.
func NewProber(timeout time.Duration, logger *zap.Logger) *Prober {
	return &Prober{
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("probe"),
	}
}

// Probe issues a HEAD request. It never fails: on a transport error or a
// non-2xx status the name and size degrade to UNKNOWN.
func (p *Prober) Probe(ctx context.Context, rawURL string) ProbeResult {
	res := ProbeResult{
		URL:  NormalizeURL(rawURL),
		Name: media.UnknownSize,
		Size: media.UnknownSize,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, res.URL, nil)
	if err != nil {
		p.logger.Warn("invalid probe url", zap.String("url", rawURL), zap.Error(err))
		return res
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("probe failed", zap.String("url", res.URL), zap.Error(err))
		return res
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Warn("probe returned non-2xx", zap.String("url", res.URL), zap.Int("status", resp.StatusCode))
		return res
	}

	res.OK = true
	if name := dispositionName(resp.Header.Get("Content-Disposition")); name != "" {
		res.Name = name
	} else if name := urlName(res.URL); name != "" {
		res.Name = name
	}
	if n, err := strconv.ParseUint(resp.Header.Get("Content-Length"), 10, 64); err == nil && n > 0 {
		res.Size = heuristics.FormatSize(n)
	}
	return res
}

func dispositionName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func urlName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || path.Ext(base) == "" {
		return ""
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		return unescaped
	}
	return base
}
