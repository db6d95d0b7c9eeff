package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/postdeck/internal/content"
	"github.com/kalambet/postdeck/internal/imageconv"
)

const (
	downloadTimeout = 60 * time.Second
	maxImageBytes   = 25 << 20
)

// SavedImage is one image written to disk.
type SavedImage struct {
	Platform content.Platform
	Path     string
}

// ImageSaver downloads generated images and writes them to a directory.
type ImageSaver struct {
	dir        string
	format     imageconv.Format
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

type SaverOption func(*ImageSaver)

// WithBaseURL resolves relative image URLs against base, normally the
// generation backend address.
func WithBaseURL(base string) SaverOption {
	return func(s *ImageSaver) {
		if u, err := url.Parse(base); err == nil {
			s.baseURL = u
		}
	}
}

func WithHTTPClient(hc *http.Client) SaverOption { return func(s *ImageSaver) { s.httpClient = hc } }

func WithLogger(l *slog.Logger) SaverOption { return func(s *ImageSaver) { s.logger = l } }

// NewImageSaver writes images into dir encoded as format.
func NewImageSaver(dir string, format imageconv.Format, opts ...SaverOption) *ImageSaver {
	s := &ImageSaver{
		dir:        dir,
		format:     format,
		httpClient: &http.Client{Timeout: downloadTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save downloads pc's image and writes <dir>/<company>-<platform>-<n>.<ext>,
// where n is the one-based variation number.
func (s *ImageSaver) Save(ctx context.Context, company string, p content.Platform, variation int, pc content.PlatformContent) (string, error) {
	if pc.ImageURL == "" {
		return "", fmt.Errorf("%s variation %d has no image", p, variation+1)
	}

	data, err := s.download(ctx, pc.ImageURL)
	if err != nil {
		return "", err
	}
	converted, err := imageconv.Convert(data, s.format)
	if err != nil {
		return "", fmt.Errorf("converting %s image: %w", p, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	name := fmt.Sprintf("%s-%s-%d.%s", Slugify(company), p, variation+1, s.format.Extension())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, converted, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	s.logger.Debug("image saved", "platform", p, "path", path, "bytes", len(converted))
	return path, nil
}

// SaveAll saves the selected variation's image for every platform that has
// one. Platforms with fewer variations fall back to their first one.
func (s *ImageSaver) SaveAll(ctx context.Context, gc content.GeneratedContent, variation int) ([]SavedImage, error) {
	type job struct {
		platform content.Platform
		index    int
		pc       content.PlatformContent
	}
	var jobs []job
	for _, p := range gc.AvailablePlatforms() {
		pc, ok := gc.Variation(p, variation)
		if !ok || pc.ImageURL == "" {
			continue
		}
		index := variation
		if variation < 0 || variation >= len(gc.Platforms[p]) {
			index = 0
		}
		jobs = append(jobs, job{platform: p, index: index, pc: pc})
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	results := make([]SavedImage, len(jobs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i, j := range jobs {
		g.Go(func() error {
			path, err := s.Save(gCtx, gc.Company, j.platform, j.index, j.pc)
			if err != nil {
				return fmt.Errorf("saving %s image: %w", j.platform, err)
			}
			results[i] = SavedImage{Platform: j.platform, Path: path}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *ImageSaver) download(ctx context.Context, raw string) ([]byte, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing image url: %w", err)
	}
	if !u.IsAbs() {
		if s.baseURL == nil {
			return nil, fmt.Errorf("relative image url %q without a base url", raw)
		}
		u = s.baseURL.ResolveReference(u)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading image: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	return data, nil
}

// Slugify lowercases s and replaces runs of non-alphanumerics with a dash.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "post"
	}
	return out
}
