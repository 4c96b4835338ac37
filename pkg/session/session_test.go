package session

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suh3art/Recon-toolkit/pkg/config"
)

func TestNewUsesConfiguredTimeout(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultSettings.Timeout = 7

	s := New(cfg)
	assert.Equal(t, 7*time.Second, s.Client.Timeout)
	assert.Same(t, cfg, s.Config)

	transport, ok := s.Client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, transport.TLSClientConfig == nil || !transport.TLSClientConfig.InsecureSkipVerify)
}

func TestSessionRejectsSelfSignedCertificates(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	_, err := New(config.Default()).Client.Get(server.URL)
	assert.Error(t, err)
}

func TestLoggingTransportKeepsErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, "rate limited")
	}))
	defer server.Close()

	var logged []string
	DebugLog = func(format string, args ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}
	defer func() { DebugLog = nil }()

	s := New(config.Default())
	_, ok := s.Client.Transport.(*LoggingTransport)
	require.True(t, ok)

	resp, err := s.Client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "rate limited", string(body))
	assert.Contains(t, logged, "error response body: rate limited")
}
