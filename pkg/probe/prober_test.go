package probe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport answers from a fixed table. A code of 0 hangs until the
// request context is done, -1 returns a connection error.
type fakeTransport struct {
	codes map[string]int

	mu     sync.Mutex
	agents []string
	calls  int
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.calls++
	f.agents = append(f.agents, req.Header.Get("User-Agent"))
	f.mu.Unlock()

	code, ok := f.codes[req.URL.Scheme+"://"+req.URL.Host]
	if !ok || code == -1 {
		return nil, errors.New("connection refused")
	}
	if code == 0 {
		<-req.Context().Done()
		return nil, req.Context().Err()
	}

	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableQuote: true})
	return logger
}

func writeHosts(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, "subdomains.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func scenarioTransport() *fakeTransport {
	return &fakeTransport{codes: map[string]int{
		"http://a.example.com":  200,
		"https://a.example.com": 0,
		"http://b.example.com":  404,
		"https://b.example.com": 301,
	}}
}

func TestRunScenario(t *testing.T) {
	dir := t.TempDir()
	hostsFile := writeHosts(t, dir, "a.example.com", "b.example.com")
	outFile := filepath.Join(dir, "live_subdomains.txt")

	logs := &syncBuffer{}
	p := New(Options{Timeout: 200 * time.Millisecond, Transport: scenarioTransport()}, newTestLogger(logs))

	result, err := p.Run(context.Background(), hostsFile, outFile)
	require.NoError(t, err)

	assert.Equal(t, []string{"http://a.example.com", "https://b.example.com"}, result.Alive)
	assert.Equal(t, 2, result.Hosts)
	assert.Equal(t, 4, result.Candidates)
	assert.Equal(t, 2, result.AliveCount)
	assert.Equal(t, 1, result.DeadCount)
	assert.Equal(t, 1, result.FailCount)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "http://a.example.com\nhttps://b.example.com\n", string(data))

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.Len(t, lines, 4)
	out := logs.String()
	assert.Contains(t, out, "Alive: http://a.example.com (Status 200)")
	assert.Contains(t, out, "Error probing https://a.example.com")
	assert.Contains(t, out, "Dead:  http://b.example.com (Status 404)")
	assert.Contains(t, out, "Alive: https://b.example.com (Status 301)")
}

func TestRunIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	hostsFile := writeHosts(t, dir, "b.example.com", "a.example.com", "a.example.com")
	outFile := filepath.Join(dir, "live_subdomains.txt")

	p := New(Options{Timeout: 100 * time.Millisecond, Transport: scenarioTransport()}, nil)

	_, err := p.Run(context.Background(), hostsFile, outFile)
	require.NoError(t, err)
	first, err := os.ReadFile(outFile)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), hostsFile, outFile)
	require.NoError(t, err)
	second, err := os.ReadFile(outFile)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRunEmptyInput(t *testing.T) {
	dir := t.TempDir()
	hostsFile := filepath.Join(dir, "subdomains.txt")
	require.NoError(t, os.WriteFile(hostsFile, []byte("\n   \n\n"), 0644))
	outFile := filepath.Join(dir, "live_subdomains.txt")

	transport := &fakeTransport{}
	result, err := New(Options{Transport: transport}, nil).Run(context.Background(), hostsFile, outFile)
	require.NoError(t, err)

	assert.Empty(t, result.Alive)
	assert.Zero(t, result.Candidates)
	assert.Zero(t, transport.calls)

	info, err := os.Stat(outFile)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestRunMissingHostsFile(t *testing.T) {
	dir := t.TempDir()
	outFile := filepath.Join(dir, "live_subdomains.txt")

	transport := &fakeTransport{}
	_, err := New(Options{Transport: transport}, nil).Run(context.Background(), filepath.Join(dir, "nope.txt"), outFile)

	require.ErrorIs(t, err, ErrHostsFileMissing)
	assert.Zero(t, transport.calls)
	_, statErr := os.Stat(outFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunHostsUsesGivenList(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "live_subdomains.txt")
	transport := scenarioTransport()

	result, err := New(Options{Timeout: 50 * time.Millisecond, Transport: transport}, nil).
		RunHosts(context.Background(), []string{"b.example.com"}, outFile)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Hosts)
	assert.Equal(t, 2, result.Candidates)
	assert.Equal(t, 2, transport.calls)
	assert.Equal(t, []string{"https://b.example.com"}, result.Alive)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "https://b.example.com\n", string(data))
}

func TestRateLimitWaitPrecedesCandidateTimeout(t *testing.T) {
	transport := &fakeTransport{codes: map[string]int{
		"http://a.example.com":  200,
		"https://a.example.com": 200,
		"http://b.example.com":  200,
		"https://b.example.com": 200,
	}}
	p := New(Options{Timeout: 30 * time.Millisecond, RateLimit: 20, Transport: transport}, nil)

	start := time.Now()
	outcomes := p.Probe(context.Background(), []string{"a.example.com", "b.example.com"})
	elapsed := time.Since(start)

	require.Len(t, outcomes, 4)
	for _, outcome := range outcomes {
		assert.Equal(t, Alive, outcome.Status, outcome.URL)
	}
	// three token waits of 50ms each outlast the per-candidate timeout
	assert.GreaterOrEqual(t, elapsed, 120*time.Millisecond)
}

func TestRateLimitWaitHonorsCancellation(t *testing.T) {
	transport := &fakeTransport{codes: map[string]int{"http://a.example.com": 200, "https://a.example.com": 200}}
	p := New(Options{RateLimit: 0.1, Transport: transport}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	outcomes := p.Probe(ctx, []string{"a.example.com"})
	require.Len(t, outcomes, 2)

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Status == Failed {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, transport.calls)
}

func TestRunOverwritesPreviousResult(t *testing.T) {
	dir := t.TempDir()
	hostsFile := writeHosts(t, dir, "a.example.com")
	outFile := filepath.Join(dir, "live_subdomains.txt")
	require.NoError(t, os.WriteFile(outFile, []byte("http://stale.example.com\nhttp://old.example.com\n"), 0644))

	_, err := New(Options{Timeout: 50 * time.Millisecond, Transport: scenarioTransport()}, nil).Run(context.Background(), hostsFile, outFile)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "http://a.example.com\n", string(data))
}

func TestProbeHangingCandidateDoesNotBlockOthers(t *testing.T) {
	codes := map[string]int{"https://slow.example.com": 0}
	var hosts []string
	for i := 0; i < 50; i++ {
		host := "h" + strings.Repeat("x", i) + ".example.com"
		hosts = append(hosts, host)
		codes["http://"+host] = 200
		codes["https://"+host] = 503
	}
	hosts = append(hosts, "slow.example.com")
	codes["http://slow.example.com"] = 200

	timeout := 300 * time.Millisecond
	p := New(Options{Timeout: timeout, Transport: &fakeTransport{codes: codes}}, nil)

	start := time.Now()
	outcomes := p.Probe(context.Background(), hosts)
	elapsed := time.Since(start)

	require.Len(t, outcomes, 2*len(hosts))
	assert.Less(t, elapsed, timeout+2*time.Second)

	alive := AliveURLs(outcomes)
	assert.Len(t, alive, 51)
	assert.Contains(t, alive, "http://slow.example.com")

	last := outcomes[len(outcomes)-1]
	assert.Equal(t, "https://slow.example.com", last.URL)
	assert.Equal(t, Failed, last.Status)
	assert.ErrorIs(t, last.Err, context.DeadlineExceeded)
}

func TestProbeOutcomesIndependentOfConcurrency(t *testing.T) {
	hosts := []string{"c.example.com", "a.example.com", "b.example.com", "a.example.com"}
	transport := &fakeTransport{codes: map[string]int{
		"http://a.example.com":  200,
		"https://a.example.com": 500,
		"http://b.example.com":  -1,
		"https://b.example.com": 204,
		"http://c.example.com":  302,
		"https://c.example.com": 403,
	}}

	var previous []Outcome
	for _, concurrency := range []int{0, 1, 2, 5} {
		p := New(Options{Timeout: time.Second, Concurrency: concurrency, Transport: transport}, nil)
		outcomes := p.Probe(context.Background(), hosts)
		require.Len(t, outcomes, 6)

		if previous != nil {
			for i := range outcomes {
				assert.Equal(t, previous[i].URL, outcomes[i].URL)
				assert.Equal(t, previous[i].Status, outcomes[i].Status)
				assert.Equal(t, previous[i].StatusCode, outcomes[i].StatusCode)
			}
		}
		previous = outcomes
	}

	assert.Equal(t, []string{"http://a.example.com", "http://c.example.com", "https://b.example.com"}, AliveURLs(previous))
}

func TestCheckSetsUserAgentFromPool(t *testing.T) {
	transport := &fakeTransport{codes: map[string]int{"http://a.example.com": 200, "https://a.example.com": 200}}
	p := New(Options{Transport: transport}, nil)

	for i := 0; i < 20; i++ {
		p.Probe(context.Background(), []string{"a.example.com"})
	}

	require.Len(t, transport.agents, 40)
	for _, agent := range transport.agents {
		assert.Contains(t, DefaultUserAgents, agent)
	}
}

func TestProbeAgainstLocalServers(t *testing.T) {
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer plain.Close()

	secure := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://elsewhere.invalid/", http.StatusMovedPermanently)
	}))
	defer secure.Close()

	plainHost := strings.TrimPrefix(plain.URL, "http://")
	secureHost := strings.TrimPrefix(secure.URL, "https://")

	p := New(Options{Timeout: 2 * time.Second}, nil)
	outcomes := p.Probe(context.Background(), []string{plainHost, secureHost})
	require.Len(t, outcomes, 4)

	assert.Equal(t, Alive, outcomes[0].Status)
	assert.Equal(t, Failed, outcomes[1].Status)
	assert.Equal(t, Dead, outcomes[2].Status)
	assert.Equal(t, http.StatusBadRequest, outcomes[2].StatusCode)
	// self-signed certificate accepted, redirect not followed
	assert.Equal(t, Alive, outcomes[3].Status)
	assert.Equal(t, http.StatusMovedPermanently, outcomes[3].StatusCode)

	assert.Equal(t, []string{"http://" + plainHost, "https://" + secureHost}, AliveURLs(outcomes))
}

func TestProberTransportIsNotShared(t *testing.T) {
	New(Options{}, nil)

	transport, ok := http.DefaultTransport.(*http.Transport)
	require.True(t, ok)
	if transport.TLSClientConfig != nil {
		assert.False(t, transport.TLSClientConfig.InsecureSkipVerify)
	}
}
