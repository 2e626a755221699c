package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deusflow/trafficwatch/internal/metrics"
	"github.com/deusflow/trafficwatch/internal/storage"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitStoreWrite, exitCode(fmt.Errorf("save news: %w", storage.ErrWrite)))
	assert.Equal(t, exitError, exitCode(errors.New("config: bad port")))
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"collect", "digest", "backfill-groups"}, names)

	digestCmd, _, err := root.Find([]string{"digest"})
	assert.NoError(t, err)
	assert.NotNil(t, digestCmd.Flags().Lookup("dry-run"))
	assert.NotNil(t, digestCmd.Flags().Lookup("hours"))
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	metrics.Global.SetError("disk full")
	defer metrics.Global.SetLastRun(0, 0)

	rec = httptest.NewRecorder()
	healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "disk full")
}
