//go:build integration

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/pdc/internal/config"
	"github.com/liamcoop/pdc/internal/pgtest"
)

// TestPostgresServer runs the calculation workflow against a real database and
// checks charts and items survive a restart
func TestPostgresServer(t *testing.T) {
	db := pgtest.Setup(t)
	ctx := context.Background()

	cfg := config.DefaultConfig()
	cfg.Charts.Dir = filepath.Join("..", "..", "charts")

	server, err := NewServerWithDB(ctx, db, cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(server)
	defer ts.Close()
	baseURL := ts.URL + "/api/v1"

	status, body := doRequest(t, "GET", baseURL+"/health", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["jurisdictionsLoaded"])

	status, _ = doRequest(t, "POST", baseURL+"/items", goethe)
	require.Equal(t, http.StatusCreated, status)

	status, body = doRequest(t, "POST", baseURL+"/calculate", map[string]any{
		"jurisdiction": "de",
		"itemId":       "item-faust",
	})
	require.Equal(t, http.StatusOK, status, "body: %v", body)
	assert.Equal(t, true, body["publicDomain"])

	status, body = doRequest(t, "GET", baseURL+"/jurisdictions/de/flowchart", nil)
	require.Equal(t, http.StatusOK, status)
	def := body

	status, body = doRequest(t, "PUT", baseURL+"/jurisdictions/de/flowchart", def)
	require.Equal(t, http.StatusOK, status, "body: %v", body)
	assert.EqualValues(t, 2, body["version"])

	// A second server on the same database picks up the stored state without reseeding
	restarted, err := NewServerWithDB(ctx, db, cfg)
	require.NoError(t, err)
	ts2 := httptest.NewServer(restarted)
	defer ts2.Close()

	status, body = doRequest(t, "GET", ts2.URL+"/api/v1/jurisdictions/de/flowchart", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["version"])

	status, body = doRequest(t, "GET", ts2.URL+"/api/v1/items/item-faust", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Faust", body["title"])
}
