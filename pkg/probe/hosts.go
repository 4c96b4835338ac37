package probe

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/suh3art/Recon-toolkit/pkg/fileutil"
)

var ErrHostsFileMissing = errors.New("hostname list not found")

// LoadHostnames reads a newline-delimited hostname list, trimming whitespace,
// skipping blank lines and removing duplicates.
func LoadHostnames(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrHostsFileMissing, path)
		}
		return nil, fmt.Errorf("failed to open hostname list: %w", err)
	}
	defer file.Close()

	var hosts []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			hosts = append(hosts, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hostname list: %w", err)
	}

	return Dedupe(hosts), nil
}

// WriteURLs overwrites path with one URL per line. An empty list yields an
// empty file.
func WriteURLs(path string, urls []string) error {
	return fileutil.WriteLines(path, urls)
}
