package probe

import (
	"context"
	"crypto/tls"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 5 * time.Second
	maxDrainBytes  = 64 * 1024
)

var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)",
	"Mozilla/5.0 (X11; Linux x86_64)",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 14_0 like Mac OS X)",
}

type Options struct {
	Timeout     time.Duration
	Concurrency int
	// RateLimit caps requests per second, 0 disables it. Candidates wait
	// for a token before their Timeout starts, so a rate limit bounds the
	// batch by rate rather than by Timeout.
	RateLimit  float64
	UserAgents []string
	Progress   bool
	// Transport replaces the prober's own insecure transport when set.
	Transport http.RoundTripper
}

type Prober struct {
	client      *http.Client
	timeout     time.Duration
	concurrency int
	userAgents  []string
	progress    bool
	limiter     *rate.Limiter
	logger      *logrus.Logger
}

// newTransport is private to the prober: certificate checks are skipped for
// recon targets and nothing else in the process shares this transport.
func newTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: true},
		TLSHandshakeTimeout:   timeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
}

func New(opts Options, logger *logrus.Logger) *Prober {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if len(opts.UserAgents) == 0 {
		opts.UserAgents = DefaultUserAgents
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	transport := opts.Transport
	if transport == nil {
		transport = newTransport(opts.Timeout)
	}

	p := &Prober{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		userAgents:  opts.UserAgents,
		progress:    opts.Progress,
		logger:      logger,
	}

	if opts.RateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return p
}

func (p *Prober) userAgent() string {
	return p.userAgents[rand.Intn(len(p.userAgents))]
}

// Check probes a single candidate. Transport errors become a Failed outcome;
// Check itself never fails.
func (p *Prober) Check(ctx context.Context, candidate Candidate) Outcome {
	outcome := Outcome{
		URL:    candidate.URL(),
		Host:   candidate.Host,
		Scheme: candidate.Scheme,
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return p.fail(outcome, err)
		}
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, outcome.URL, nil)
	if err != nil {
		return p.fail(outcome, err)
	}
	req.Header.Set("User-Agent", p.userAgent())

	resp, err := p.client.Do(req)
	outcome.Duration = time.Since(start)
	if err != nil {
		return p.fail(outcome, err)
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	resp.Body.Close()

	outcome.StatusCode = resp.StatusCode
	outcome.Status = Classify(resp.StatusCode)

	if outcome.Status == Alive {
		p.logger.Infof("Alive: %s (Status %d)", outcome.URL, outcome.StatusCode)
	} else {
		p.logger.Infof("Dead:  %s (Status %d)", outcome.URL, outcome.StatusCode)
	}

	return outcome
}

func (p *Prober) fail(outcome Outcome, err error) Outcome {
	outcome.Status = Failed
	outcome.Err = err
	p.logger.Errorf("Error probing %s: %v", outcome.URL, err)
	return outcome
}

// Probe checks every candidate of hosts and returns one outcome per
// candidate, in candidate order regardless of completion order.
func (p *Prober) Probe(ctx context.Context, hosts []string) []Outcome {
	candidates := Candidates(hosts)
	outcomes := make([]Outcome, len(candidates))
	if len(candidates) == 0 {
		return outcomes
	}

	workers := p.concurrency
	if workers <= 0 || workers > len(candidates) {
		workers = len(candidates)
	}
	sem := make(chan struct{}, workers)

	var bar *progressbar.ProgressBar
	if p.progress {
		bar = progressbar.NewOptions(len(candidates),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Probing hosts..."),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
		)
	}

	var wg sync.WaitGroup
	for i, candidate := range candidates {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, candidate Candidate) {
			defer wg.Done()
			defer func() { <-sem }()

			outcomes[i] = p.Check(ctx, candidate)
			if bar != nil {
				bar.Add(1)
			}
		}(i, candidate)
	}
	wg.Wait()

	if bar != nil {
		bar.Finish()
	}

	return outcomes
}

// Run loads hostsFile, probes every host and overwrites outputFile with the
// sorted alive URLs. A missing hostname list aborts before any request and
// leaves outputFile untouched.
func (p *Prober) Run(ctx context.Context, hostsFile, outputFile string) (*Result, error) {
	hosts, err := LoadHostnames(hostsFile)
	if err != nil {
		return nil, err
	}

	return p.RunHosts(ctx, hosts, outputFile)
}

// RunHosts is Run for an already loaded hostname list.
func (p *Prober) RunHosts(ctx context.Context, hosts []string, outputFile string) (*Result, error) {
	start := time.Now()
	outcomes := p.Probe(ctx, hosts)
	result := summarize(len(hosts), outcomes, time.Since(start))

	if err := WriteURLs(outputFile, result.Alive); err != nil {
		return nil, err
	}

	return result, nil
}
