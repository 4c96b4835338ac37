package elastic

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suh3art/Recon-toolkit/pkg/config"
)

// fakeCluster answers the info and bulk endpoints the way a single-node
// cluster would and records every bulk payload line.
type fakeCluster struct {
	mu    sync.Mutex
	lines []string
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Elastic-Product", "Elasticsearch")

	if strings.HasSuffix(r.URL.Path, "/_bulk") {
		var items []string
		scanner := bufio.NewScanner(r.Body)
		f.mu.Lock()
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			f.lines = append(f.lines, line)
			if strings.HasPrefix(line, `{"index"`) {
				items = append(items, `{"index":{"_index":"recon_probe","status":201}}`)
			}
		}
		f.mu.Unlock()
		w.Write([]byte(`{"took":1,"errors":false,"items":[` + strings.Join(items, ",") + `]}`))
		return
	}

	w.Write([]byte(`{"name":"node","cluster_name":"test","version":{"number":"8.13.0","build_flavor":"default"},"tagline":"You Know, for Search"}`))
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(config.Elastic{})
	assert.Error(t, err)
}

func TestIndexJSONLinesFile(t *testing.T) {
	cluster := &fakeCluster{}
	server := httptest.NewServer(cluster)
	defer server.Close()

	client, err := New(config.Elastic{URL: server.URL})
	require.NoError(t, err)
	assert.Equal(t, DefaultIndex, client.Index())

	path := filepath.Join(t.TempDir(), "probe_results.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"url":"http://a.example.com","result":"alive","status_code":200}`+"\n\n"+
			`{"url":"https://a.example.com","result":"failed"}`+"\n"), 0644))

	indexed, err := client.IndexJSONLinesFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, indexed)

	cluster.mu.Lock()
	defer cluster.mu.Unlock()
	assert.Contains(t, cluster.lines, `{"url":"http://a.example.com","result":"alive","status_code":200}`)
	assert.Contains(t, cluster.lines, `{"url":"https://a.example.com","result":"failed"}`)
}

func TestIndexMissingFile(t *testing.T) {
	server := httptest.NewServer(&fakeCluster{})
	defer server.Close()

	client, err := New(config.Elastic{URL: server.URL, Index: "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", client.Index())

	_, err = client.IndexJSONLinesFile(context.Background(), filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.Error(t, err)
}
