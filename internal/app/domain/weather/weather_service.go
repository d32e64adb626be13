package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
	"github.com/FACorreiaa/go-wanderplan/internal/pkg/config"
)

type WeatherService interface {
	CurrentWeather(ctx context.Context, lat, lng float64) (*models.CurrentWeather, error)
}

type WeatherServiceImpl struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
	cache      *cache.Cache
}

var _ WeatherService = (*WeatherServiceImpl)(nil)

func NewWeatherService(cfg config.WeatherConfig, httpClient *http.Client, logger *zap.Logger) *WeatherServiceImpl {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &WeatherServiceImpl{
		logger:     logger,
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		cache:      cache.New(ttl, 2*ttl),
	}
}

func (s *WeatherServiceImpl) CurrentWeather(ctx context.Context, lat, lng float64) (*models.CurrentWeather, error) {
	ctx, span := otel.Tracer("WeatherService").Start(ctx, "CurrentWeather", trace.WithAttributes(
		attribute.Float64("lat", lat),
		attribute.Float64("lng", lng),
	))
	defer span.End()

	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("%w: coordinates out of range", models.ErrValidation)
	}

	// Two decimals is roughly 1km, close enough to share cached readings.
	key := fmt.Sprintf("%.2f:%.2f", lat, lng)
	if cached, found := s.cache.Get(key); found {
		w := cached.(models.CurrentWeather)
		return &w, nil
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lng, 'f', 4, 64))
	q.Set("current_weather", "true")
	q.Set("timezone", "UTC")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "weather request failed")
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		reason := gjson.GetBytes(body, "reason").String()
		s.logger.Warn("Weather provider returned an error",
			zap.Int("status", resp.StatusCode), zap.String("reason", reason))
		if resp.StatusCode == http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s", models.ErrBadRequest, reason)
		}
		return nil, fmt.Errorf("weather provider status %d", resp.StatusCode)
	}

	current := gjson.GetBytes(body, "current_weather")
	if !current.Exists() {
		return nil, fmt.Errorf("weather response has no current_weather")
	}

	w := models.CurrentWeather{
		Latitude:      gjson.GetBytes(body, "latitude").Float(),
		Longitude:     gjson.GetBytes(body, "longitude").Float(),
		Temperature:   current.Get("temperature").Float(),
		WindSpeed:     current.Get("windspeed").Float(),
		WindDirection: current.Get("winddirection").Float(),
		WeatherCode:   int(current.Get("weathercode").Int()),
		IsDay:         current.Get("is_day").Int() == 1,
	}
	w.Description = describeWeatherCode(w.WeatherCode)
	if t, err := time.Parse("2006-01-02T15:04", current.Get("time").String()); err == nil {
		w.ObservedAt = t
	}

	s.cache.Set(key, w, cache.DefaultExpiration)
	return &w, nil
}

// describeWeatherCode maps WMO weather interpretation codes to a short label.
func describeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code <= 3:
		return "Partly cloudy"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case code >= 61 && code <= 67:
		return "Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 80 && code <= 82:
		return "Rain showers"
	case code == 85 || code == 86:
		return "Snow showers"
	case code >= 95:
		return "Thunderstorm"
	default:
		return "Unknown"
	}
}
