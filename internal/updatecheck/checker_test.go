package updatecheck_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secretlens/secretlens/internal/config"
	"github.com/secretlens/secretlens/internal/updatecheck"
)

func serveRelease(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newChecker(endpoint, current string) *updatecheck.Checker {
	cfg := config.UpdateCheckConfig{
		Enabled:         true,
		ReleaseEndpoint: endpoint,
		TimeoutSeconds:  5,
	}
	return updatecheck.NewChecker(cfg, current, zerolog.Nop())
}

func TestChecker_UpdateAvailable(t *testing.T) {
	server := serveRelease(t, `{"tag_name":"v1.2.0","html_url":"https://example.com/releases/v1.2.0"}`, http.StatusOK)

	result := newChecker(server.URL, "0.9.3").Check(context.Background())
	require.NotNil(t, result)
	assert.True(t, result.UpdateAvailable)
	assert.Equal(t, "1.2.0", result.LatestVersion)
	assert.Equal(t, "0.9.3", result.CurrentVersion)
	assert.Equal(t, "https://example.com/releases/v1.2.0", result.ReleaseURL)
}

func TestChecker_VersionComparison(t *testing.T) {
	testCases := []struct {
		name      string
		current   string
		tag       string
		available bool
	}{
		{"same version", "1.2.0", "v1.2.0", false},
		{"missing trailing component is zero", "1.2", "v1.2.0", false},
		{"patch bump", "1.2.0", "v1.2.1", true},
		{"minor beats larger patch", "1.2.9", "v1.3.0", true},
		{"remote older", "2.0.0", "v1.9.9", false},
		{"leading v on current", "v1.0.0", "v1.0.1", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := serveRelease(t, `{"tag_name":"`+tc.tag+`"}`, http.StatusOK)
			result := newChecker(server.URL, tc.current).Check(context.Background())
			require.NotNil(t, result)
			assert.Equal(t, tc.available, result.UpdateAvailable)
		})
	}
}

func TestChecker_DisabledReturnsNil(t *testing.T) {
	cfg := config.UpdateCheckConfig{Enabled: false}
	checker := updatecheck.NewChecker(cfg, "1.0.0", zerolog.Nop())
	assert.Nil(t, checker.Check(context.Background()))
}

func TestChecker_FailuresDegradeToNil(t *testing.T) {
	t.Run("non-OK status", func(t *testing.T) {
		server := serveRelease(t, `rate limited`, http.StatusForbidden)
		assert.Nil(t, newChecker(server.URL, "1.0.0").Check(context.Background()))
	})

	t.Run("malformed body", func(t *testing.T) {
		server := serveRelease(t, `{"tag_name": `, http.StatusOK)
		assert.Nil(t, newChecker(server.URL, "1.0.0").Check(context.Background()))
	})

	t.Run("empty tag", func(t *testing.T) {
		server := serveRelease(t, `{"tag_name":""}`, http.StatusOK)
		assert.Nil(t, newChecker(server.URL, "1.0.0").Check(context.Background()))
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		server := serveRelease(t, `{}`, http.StatusOK)
		server.Close()
		assert.Nil(t, newChecker(server.URL, "1.0.0").Check(context.Background()))
	})
}

func TestChecker_UncomparableCurrentVersion(t *testing.T) {
	server := serveRelease(t, `{"tag_name":"v2.0.0"}`, http.StatusOK)

	result := newChecker(server.URL, "dev").Check(context.Background())
	require.NotNil(t, result)
	assert.False(t, result.UpdateAvailable)
	assert.Equal(t, "2.0.0", result.LatestVersion)
}
