package database

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutritrack/internal/common/config"
)

func fakeCluster(t *testing.T, indexExists bool, created *string) *ElasticsearchClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodHead:
			if indexExists {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			raw, _ := io.ReadAll(r.Body)
			*created = string(raw)
			_, _ = io.WriteString(w, `{"acknowledged":true}`)
		default:
			_, _ = io.WriteString(w, `{}`)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func TestEnsureIndex(t *testing.T) {
	mapping := `{"mappings":{"properties":{"id":{"type":"long"}}}}`

	t.Run("creates a missing index", func(t *testing.T) {
		var body string
		client := fakeCluster(t, false, &body)

		created, err := client.EnsureIndex(context.Background(), "menu_items", mapping)
		require.NoError(t, err)
		assert.True(t, created)
		assert.JSONEq(t, mapping, body)
	})

	t.Run("leaves an existing index alone", func(t *testing.T) {
		var body string
		client := fakeCluster(t, true, &body)

		created, err := client.EnsureIndex(context.Background(), "menu_items", mapping)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Empty(t, body)
	})
}

func TestNewElasticsearch_RequiresAddresses(t *testing.T) {
	_, err := NewElasticsearch(config.ElasticsearchConfig{})
	assert.Error(t, err)
}
