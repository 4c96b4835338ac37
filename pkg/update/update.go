package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
)

const (
	GitHubAPI     = "https://api.github.com/repos/suh3art/Recon-toolkit/releases/latest"
	UpdateTimeout = 30 * time.Second
	BinaryPrefix  = "recon-toolkit"
)

type GitHubRelease struct {
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	PublishedAt string `json:"published_at"`
	Assets      []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
	} `json:"assets"`
}

// AssetURL returns the download URL of the named asset, or "".
func (r *GitHubRelease) AssetURL(name string) string {
	for _, asset := range r.Assets {
		if asset.Name == name {
			return asset.BrowserDownloadURL
		}
	}
	return ""
}

type Updater struct {
	APIURL  string
	Client  *http.Client
	Verbose bool
	Out     io.Writer
}

func NewUpdater(verbose bool) *Updater {
	return &Updater{
		APIURL:  GitHubAPI,
		Client:  &http.Client{Timeout: 5 * time.Minute},
		Verbose: verbose,
		Out:     os.Stdout,
	}
}

func (u *Updater) logf(format string, args ...interface{}) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "[UPDATE] "+format+"\n", args...)
	}
}

func (u *Updater) LatestRelease(ctx context.Context) (*GitHubRelease, error) {
	ctx, cancel := context.WithTimeout(ctx, UpdateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.APIURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", BinaryPrefix+"-updater")

	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest version: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &release, nil
}

// CompareVersions reports whether latest is newer than current, comparing
// up to three numeric components.
func CompareVersions(current, latest string) bool {
	currentParts := strings.Split(strings.TrimPrefix(current, "v"), ".")
	latestParts := strings.Split(strings.TrimPrefix(latest, "v"), ".")

	for i := 0; i < 3; i++ {
		var c, l int
		if i < len(currentParts) {
			fmt.Sscanf(currentParts[i], "%d", &c)
		}
		if i < len(latestParts) {
			fmt.Sscanf(latestParts[i], "%d", &l)
		}

		if l > c {
			return true
		} else if l < c {
			return false
		}
	}

	return false
}

func BinaryName(goos, goarch string) string {
	name := fmt.Sprintf("%s_%s_%s", BinaryPrefix, goos, goarch)
	if goos == "windows" {
		name += ".exe"
	}
	return name
}

// Download fetches url into outputPath and marks it executable.
func (u *Updater) Download(ctx context.Context, url, outputPath string) error {
	u.logf("Downloading from %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := u.Client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	var dst io.Writer = out
	if u.Verbose {
		bar := progressbar.DefaultBytes(resp.ContentLength, "downloading")
		dst = io.MultiWriter(out, bar)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := out.Chmod(0755); err != nil {
		return fmt.Errorf("failed to set executable permission: %w", err)
	}

	return nil
}

func replaceBinary(currentPath, newPath string) error {
	if err := os.Remove(currentPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove old binary: %w", err)
	}

	if err := os.Rename(newPath, currentPath); err != nil {
		return fmt.Errorf("failed to replace binary: %w", err)
	}

	return nil
}

// Apply replaces execPath with the release asset built for this platform.
// It returns false when currentVersion is already the latest.
func (u *Updater) Apply(ctx context.Context, currentVersion, execPath string) (bool, error) {
	release, err := u.LatestRelease(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check for updates: %w", err)
	}

	u.logf("Current version: %s", currentVersion)
	u.logf("Latest version:  %s", release.TagName)

	if !CompareVersions(currentVersion, release.TagName) {
		fmt.Fprintf(u.Out, "You are already running the latest version (%s)\n", currentVersion)
		return false, nil
	}

	fmt.Fprintf(u.Out, "New version available: %s -> %s\n", currentVersion, release.TagName)

	downloadURL := release.AssetURL(BinaryName(runtime.GOOS, runtime.GOARCH))
	if downloadURL == "" {
		return false, fmt.Errorf("no binary found for %s/%s", runtime.GOOS, runtime.GOARCH)
	}

	tempPath := execPath + ".new"
	if err := u.Download(ctx, downloadURL, tempPath); err != nil {
		os.Remove(tempPath)
		return false, err
	}

	if err := replaceBinary(execPath, tempPath); err != nil {
		os.Remove(tempPath)
		return false, err
	}

	fmt.Fprintf(u.Out, "Successfully updated to version %s\n", release.TagName)
	return true, nil
}
