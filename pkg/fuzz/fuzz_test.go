package fuzz

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs(t *testing.T) {
	args := Args("http://example.com/", "/tmp/ffuf.json", Options{Wordlist: "common.txt"})
	assert.Equal(t, []string{
		"-u", "http://example.com/FUZZ",
		"-w", "common.txt",
		"-t", "40",
		"-o", "/tmp/ffuf.json",
		"-of", "json",
		"-mc", "200,301,302",
	}, args)
}

func TestParseResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ffuf_results.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"commandline": "ffuf -u http://example.com/FUZZ",
		"results": [
			{"input": {"FUZZ": "admin"}, "status": 200, "url": "http://example.com/admin"},
			{"input": {"FUZZ": ".git"}, "status": 301, "url": "http://example.com/.git"},
			{"input": {"value": "backup"}, "status": 302, "url": "http://example.com/backup"}
		]
	}`), 0644))

	assert.Equal(t, []string{"admin", ".git", "backup"}, ParseResults(path))
}

func TestParseResultsMissingOrBroken(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, ParseResults(filepath.Join(dir, "missing.json")))

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{not json"), 0644))
	assert.Empty(t, ParseResults(broken))
}

func TestRunWithoutFfufWritesEmptyPaths(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	t.Setenv("GOPATH", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	pathsFile := filepath.Join(dir, "found_paths.txt")
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	result, err := Run(context.Background(), []string{"http://example.com"}, filepath.Join(dir, "ffuf_results.json"), pathsFile, Options{Wordlist: "common.txt"}, logger, io.Discard)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)

	info, err := os.Stat(pathsFile)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestRunIgnoresLeftoverResults(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	t.Setenv("GOPATH", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	resultsFile := filepath.Join(dir, "ffuf_results.json")
	pathsFile := filepath.Join(dir, "found_paths.txt")
	require.NoError(t, os.WriteFile(resultsFile, []byte(`{"results":[{"input":{"FUZZ":"old-admin"}}]}`), 0644))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	bases := []string{"http://example.com", "https://example.com"}
	result, err := Run(context.Background(), bases, resultsFile, pathsFile, Options{Wordlist: "common.txt"}, logger, io.Discard)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
	assert.NoFileExists(t, resultsFile)

	data, err := os.ReadFile(pathsFile)
	require.NoError(t, err)
	assert.Empty(t, string(data))
}
