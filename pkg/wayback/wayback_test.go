package wayback

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suh3art/Recon-toolkit/pkg/config"
	"github.com/suh3art/Recon-toolkit/pkg/session"
)

func TestRunWritesArchiveAndSuspicious(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "example.com", q.Get("url"))
		assert.Equal(t, "json", q.Get("output"))
		assert.Equal(t, "original", q.Get("fl"))
		assert.Equal(t, "urlkey", q.Get("collapse"))

		io.WriteString(w, `[["original"],
			["http://example.com/"],
			["http://example.com/Admin/panel"],
			["http://example.com/about"],
			["http://example.com/.env"],
			["http://example.com/about"]]`)
	}))
	defer server.Close()

	dir := t.TempDir()
	urlsFile := filepath.Join(dir, "wayback_urls.txt")
	suspiciousFile := filepath.Join(dir, "suspicious_wayback.txt")

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client := &Client{Session: session.New(config.Default()), CDXURL: server.URL}
	result, err := client.Run(context.Background(), "example.com", urlsFile, suspiciousFile, logger)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"http://example.com/",
		"http://example.com/Admin/panel",
		"http://example.com/about",
		"http://example.com/.env",
	}, result.URLs)
	assert.Equal(t, []string{"http://example.com/Admin/panel", "http://example.com/.env"}, result.Suspicious)

	data, err := os.ReadFile(suspiciousFile)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/Admin/panel\nhttp://example.com/.env\n", string(data))
}

func TestRunFailsOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	dir := t.TempDir()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client := &Client{Session: session.New(config.Default()), CDXURL: server.URL}
	_, err := client.Run(context.Background(), "example.com", filepath.Join(dir, "a"), filepath.Join(dir, "b"), logger)
	assert.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "a"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestParseFlatRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `["http://example.com/a", "http://example.com/b", "http://example.com/a"]`)
	}))
	defer server.Close()

	client := &Client{Session: session.New(config.Default()), CDXURL: server.URL}
	urls, err := client.Fetch(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example.com/a", "http://example.com/b"}, urls)
}

func TestFilterInvalidPattern(t *testing.T) {
	_, err := Filter([]string{"x"}, []string{"("})
	assert.Error(t, err)
}
