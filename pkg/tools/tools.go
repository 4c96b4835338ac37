package tools

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// InstallPaths maps the external tools the pipeline drives to their
// go install package.
var InstallPaths = map[string]string{
	"subfinder":   "github.com/projectdiscovery/subfinder/v2/cmd/subfinder@latest",
	"assetfinder": "github.com/tomnomnom/assetfinder@latest",
	"gau":         "github.com/lc/gau/v2/cmd/gau@latest",
	"ffuf":        "github.com/ffuf/ffuf/v2@latest",
}

// Path finds name on PATH, then in $GOPATH/bin and ~/go/bin.
func Path(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	goBinPaths := []string{}

	if gopath := os.Getenv("GOPATH"); gopath != "" {
		goBinPaths = append(goBinPaths, filepath.Join(gopath, "bin", name))
	}

	if home := os.Getenv("HOME"); home != "" {
		goBinPaths = append(goBinPaths, filepath.Join(home, "go", "bin", name))
	}

	for _, path := range goBinPaths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}

	return "", fmt.Errorf("%s not found", name)
}

// Ensure installs name with go install when it is missing and an install
// path is known for it.
func Ensure(name string, verbose bool) error {
	if path, err := Path(name); err == nil {
		if verbose {
			fmt.Printf("[DBG] %s binary found: %s\n", name, path)
		}
		return nil
	}

	pkg, ok := InstallPaths[name]
	if !ok {
		return fmt.Errorf("%s not found and no install path known", name)
	}

	if verbose {
		fmt.Printf("[DBG] %s not found, installing via go install...\n", name)
	}

	cmd := exec.Command("go", "install", "-v", pkg)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to install %s: %w", name, err)
	}

	if _, err := Path(name); err != nil {
		return fmt.Errorf("%s installed but not found on PATH or in go/bin", name)
	}

	return nil
}

// Run executes name with args, wiring stdout and stderr to the given writers.
func Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	path, err := Path(name)
	if err != nil {
		return fmt.Errorf("%s executable not found: %w", name, err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}

	return nil
}

// CommandLine renders a command for logs.
func CommandLine(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}
