package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
	"github.com/FACorreiaa/go-wanderplan/internal/app/observability/metrics"
	"github.com/FACorreiaa/go-wanderplan/internal/pkg/config"
)

const (
	maxImageBytes     = 5 << 20
	placeholderWidth  = 800
	placeholderHeight = 600
)

// transparentPixel is a 1x1 transparent PNG.
const transparentPixel = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

var errNoImage = errors.New("no image found")

type ImageService interface {
	SearchImage(ctx context.Context, place string) (*models.PlaceImage, error)
}

type ImageServiceImpl struct {
	logger     *zap.Logger
	httpClient *http.Client
	cfg        config.ImagesConfig
	cache      *cache.Cache
}

var _ ImageService = (*ImageServiceImpl)(nil)

func NewImageService(cfg config.ImagesConfig, httpClient *http.Client, logger *zap.Logger) *ImageServiceImpl {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ImageServiceImpl{
		logger:     logger,
		httpClient: httpClient,
		cfg:        cfg,
		cache:      cache.New(ttl, 2*ttl),
	}
}

// SearchImage resolves place to an inlined image. It never fails for a non-empty place:
// search API, then Wikipedia, then the on-disk placeholder, then a transparent pixel.
func (s *ImageServiceImpl) SearchImage(ctx context.Context, place string) (*models.PlaceImage, error) {
	ctx, span := otel.Tracer("ImageService").Start(ctx, "SearchImage", trace.WithAttributes(
		attribute.String("place", place),
	))
	defer span.End()
	l := s.logger.With(zap.String("method", "SearchImage"), zap.String("place", place))

	place = strings.TrimSpace(place)
	if place == "" {
		return nil, fmt.Errorf("%w: place is required", models.ErrValidation)
	}

	key := strings.ToLower(place)
	if cached, found := s.cache.Get(key); found {
		img := cached.(models.PlaceImage)
		return &img, nil
	}

	result := models.PlaceImage{Place: place}
	dataURL, err := s.searchAPI(ctx, place)
	result.Image, result.Source = dataURL, models.ImageSourceSearch
	if err != nil {
		l.Debug("Image search failed, trying Wikipedia", zap.Error(err))
		dataURL, err = s.wikipedia(ctx, place)
		result.Image, result.Source = dataURL, models.ImageSourceWikipedia
	}
	if err != nil {
		l.Debug("Wikipedia lookup failed, using placeholder", zap.Error(err))
		dataURL, err = s.placeholder()
		result.Image, result.Source = dataURL, models.ImageSourcePlaceholder
	}
	if err != nil {
		l.Warn("Placeholder unavailable, returning transparent pixel", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "all image sources failed")
		result.Image, result.Source = transparentPixel, models.ImageSourcePixel
	}

	metrics.Add(ctx, func(m *metrics.AppMetrics) metric.Int64Counter { return m.ImageLookupsTotal }, 1,
		attribute.String("source", string(result.Source)))

	if result.Source == models.ImageSourceSearch || result.Source == models.ImageSourceWikipedia {
		s.cache.Set(key, result, cache.DefaultExpiration)
	}
	return &result, nil
}

func (s *ImageServiceImpl) searchAPI(ctx context.Context, place string) (string, error) {
	if s.cfg.APIKey == "" {
		return "", errors.New("image search API key not configured")
	}

	q := url.Values{}
	q.Set("query", place)
	q.Set("per_page", "1")
	q.Set("orientation", "landscape")
	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/search/photos?" + q.Encode()

	body, _, err := s.get(ctx, endpoint, map[string]string{
		"Authorization":  "Client-ID " + s.cfg.APIKey,
		"Accept-Version": "v1",
	})
	if err != nil {
		return "", err
	}

	imageURL := gjson.GetBytes(body, "results.0.urls.regular").String()
	if imageURL == "" {
		return "", errNoImage
	}
	return s.fetchDataURL(ctx, imageURL)
}

func (s *ImageServiceImpl) wikipedia(ctx context.Context, place string) (string, error) {
	if s.cfg.WikiBaseURL == "" {
		return "", errors.New("wikipedia lookup disabled")
	}
	title := url.PathEscape(strings.ReplaceAll(place, " ", "_"))
	body, _, err := s.get(ctx, strings.TrimRight(s.cfg.WikiBaseURL, "/")+"/"+title, nil)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse wikipedia page: %w", err)
	}
	imageURL, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content")
	if !ok || imageURL == "" {
		return "", errNoImage
	}
	if strings.HasPrefix(imageURL, "//") {
		imageURL = "https:" + imageURL
	}
	return s.fetchDataURL(ctx, imageURL)
}

func (s *ImageServiceImpl) fetchDataURL(ctx context.Context, imageURL string) (string, error) {
	body, contentType, err := s.get(ctx, imageURL, nil)
	if err != nil {
		return "", err
	}
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(body)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("unexpected content type %q", contentType)
	}
	return dataURL(contentType, body), nil
}

func (s *ImageServiceImpl) get(ctx context.Context, endpoint string, headers map[string]string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "wanderplan/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("request %s: unexpected status %d", req.URL.Host, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxImageBytes {
		return nil, "", fmt.Errorf("request %s: body exceeds %d bytes", req.URL.Host, maxImageBytes)
	}
	return body, strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0]), nil
}

// placeholder reads the static placeholder, generating it on first use.
func (s *ImageServiceImpl) placeholder() (string, error) {
	path := s.cfg.PlaceholderPath
	if path == "" {
		return "", errors.New("placeholder path not configured")
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		data, err = writePlaceholder(path)
	}
	if err != nil {
		return "", err
	}
	return dataURL("image/png", data), nil
}

func writePlaceholder(path string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	top := color.RGBA{R: 0x6d, G: 0xa3, B: 0xc7, A: 0xff}
	bottom := color.RGBA{R: 0xe8, G: 0xee, B: 0xf2, A: 0xff}
	for y := 0; y < placeholderHeight; y++ {
		c := blend(top, bottom, float64(y)/float64(placeholderHeight-1))
		for x := 0; x < placeholderWidth; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create placeholder dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

func blend(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 { return uint8(float64(x)*(1-t) + float64(y)*t) }
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}

func dataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
