package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/app/models"
	"github.com/FACorreiaa/go-wanderplan/internal/pkg/config"
)

var fakeJPEG = []byte("\xff\xd8\xff\xe0fake-jpeg-bytes")

type upstream struct {
	srv          *httptest.Server
	searchCalls  atomic.Int32
	searchResult string
	wikiHTML     string
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/search/photos", func(w http.ResponseWriter, r *http.Request) {
		u.searchCalls.Add(1)
		if r.Header.Get("Authorization") != "Client-ID key-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, u.searchResult)
	})
	mux.HandleFunc("/wiki/", func(w http.ResponseWriter, r *http.Request) {
		if u.wikiHTML == "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, u.wikiHTML)
	})
	mux.HandleFunc("/photo.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(fakeJPEG)
	})
	mux.HandleFunc("/huge.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(bytes.Repeat([]byte{0xff}, maxImageBytes+1<<20))
	})
	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) config(t *testing.T, apiKey string) config.ImagesConfig {
	return config.ImagesConfig{
		APIKey:          apiKey,
		BaseURL:         u.srv.URL,
		WikiBaseURL:     u.srv.URL + "/wiki",
		PlaceholderPath: filepath.Join(t.TempDir(), "static", "placeholder.png"),
	}
}

func TestSearchImageFromSearchAPI(t *testing.T) {
	u := newUpstream(t)
	u.searchResult = fmt.Sprintf(`{"total":1,"results":[{"urls":{"regular":"%s/photo.jpg"}}]}`, u.srv.URL)
	svc := NewImageService(u.config(t, "key-1"), u.srv.Client(), zap.NewNop())

	img, err := svc.SearchImage(context.Background(), "Lisbon")
	require.NoError(t, err)

	assert.Equal(t, models.ImageSourceSearch, img.Source)
	assert.Equal(t, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(fakeJPEG), img.Image)

	_, err = svc.SearchImage(context.Background(), "lisbon")
	require.NoError(t, err)
	assert.Equal(t, int32(1), u.searchCalls.Load(), "second lookup is served from cache")
}

func TestSearchImageFallsBackToWikipedia(t *testing.T) {
	u := newUpstream(t)
	u.searchResult = `{"total":0,"results":[]}`
	u.wikiHTML = fmt.Sprintf(`<html><head><meta property="og:image" content="%s/photo.jpg"></head></html>`, u.srv.URL)
	svc := NewImageService(u.config(t, "key-1"), u.srv.Client(), zap.NewNop())

	img, err := svc.SearchImage(context.Background(), "Porto")
	require.NoError(t, err)
	assert.Equal(t, models.ImageSourceWikipedia, img.Source)
	assert.True(t, strings.HasPrefix(img.Image, "data:image/jpeg;base64,"))
}

func TestSearchImageRejectsOversizedImage(t *testing.T) {
	u := newUpstream(t)
	u.searchResult = fmt.Sprintf(`{"total":1,"results":[{"urls":{"regular":"%s/huge.jpg"}}]}`, u.srv.URL)
	u.wikiHTML = fmt.Sprintf(`<html><head><meta property="og:image" content="%s/photo.jpg"></head></html>`, u.srv.URL)
	svc := NewImageService(u.config(t, "key-1"), u.srv.Client(), zap.NewNop())

	img, err := svc.SearchImage(context.Background(), "Madeira")
	require.NoError(t, err)
	assert.Equal(t, models.ImageSourceWikipedia, img.Source)
	assert.Equal(t, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(fakeJPEG), img.Image)
}

func TestSearchImageGeneratesPlaceholder(t *testing.T) {
	u := newUpstream(t)
	cfg := u.config(t, "")
	svc := NewImageService(cfg, u.srv.Client(), zap.NewNop())

	img, err := svc.SearchImage(context.Background(), "Nowhere Town")
	require.NoError(t, err)
	assert.Equal(t, models.ImageSourcePlaceholder, img.Source)

	data, err := os.ReadFile(cfg.PlaceholderPath)
	require.NoError(t, err, "placeholder is written to disk")
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, placeholderWidth, decoded.Bounds().Dx())
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(data), img.Image)
}

func TestSearchImageTransparentPixelLastResort(t *testing.T) {
	u := newUpstream(t)
	cfg := u.config(t, "")
	cfg.PlaceholderPath = ""
	svc := NewImageService(cfg, u.srv.Client(), zap.NewNop())

	img, err := svc.SearchImage(context.Background(), "Nowhere")
	require.NoError(t, err)
	assert.Equal(t, models.ImageSourcePixel, img.Source)
	assert.Equal(t, transparentPixel, img.Image)
}

func TestSearchImageRequiresPlace(t *testing.T) {
	svc := NewImageService(config.ImagesConfig{}, nil, zap.NewNop())
	_, err := svc.SearchImage(context.Background(), "  ")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestTransparentPixelIsValidPNG(t *testing.T) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(transparentPixel, "data:image/png;base64,"))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 1, img.Bounds().Dx())
}
