package enum

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/suh3art/Recon-toolkit/pkg/tools"
)

// ToolSource runs an external enumerator that prints one hostname per line.
type ToolSource struct {
	Tool   string
	Args   func(domain string) []string
	Stderr io.Writer
}

func Subfinder(stderr io.Writer) *ToolSource {
	return &ToolSource{
		Tool:   "subfinder",
		Args:   func(domain string) []string { return []string{"-d", domain, "-silent"} },
		Stderr: stderr,
	}
}

func Assetfinder(stderr io.Writer) *ToolSource {
	return &ToolSource{
		Tool:   "assetfinder",
		Args:   func(domain string) []string { return []string{"--subs-only", domain} },
		Stderr: stderr,
	}
}

func (t *ToolSource) Name() string {
	return t.Tool
}

func (t *ToolSource) Run(ctx context.Context, domain string) <-chan Result {
	results := make(chan Result)

	go func() {
		defer close(results)

		stderr := t.Stderr
		if stderr == nil {
			stderr = io.Discard
		}

		var stdout bytes.Buffer
		if err := tools.Run(ctx, t.Tool, t.Args(domain), &stdout, stderr); err != nil {
			results <- Result{Source: t.Name(), Error: err}
			return
		}

		scanner := bufio.NewScanner(&stdout)
		for scanner.Scan() {
			hostname := normalize(scanner.Text(), domain)
			if hostname == "" {
				continue
			}

			select {
			case results <- Result{Source: t.Name(), Value: hostname}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return results
}
