package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcription-editor/pkg/config"
	"transcription-editor/pkg/logging"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Database.Driver = "memory"
	cfg.Editor.SelectionUnits = "graphemes"
	cfg.Editor.DefaultLanguage = "la"
	return cfg
}

func TestServerRoutes(t *testing.T) {
	s, err := NewServer(memoryConfig(), logging.Discard())
	require.NoError(t, err)
	defer s.Close()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	s, err := NewServer(memoryConfig(), logging.Discard())
	require.NoError(t, err)
	defer s.Close()

	req := httptest.NewRequest(http.MethodOptions, "/api/documents/abc", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestBadConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.Editor.SelectionUnits = "bytes"
	_, err := NewServer(cfg, nil)
	assert.Error(t, err)

	cfg = memoryConfig()
	cfg.Database.Driver = "oracle"
	_, err = NewServer(cfg, nil)
	assert.Error(t, err)
}
