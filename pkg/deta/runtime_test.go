package deta_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/detaorm/base_sdk_go/pkg/deta"
)

func TestNewFromEnvHTTPMode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "proj123_secret_token", r.Header.Get("X-API-Key"))
		require.Equal(t, "/v1/proj123/users/items/u1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"key":"u1","name":"alice"}`))
	}))
	defer srv.Close()

	t.Setenv("DETA_SDK_MODE", "http")
	t.Setenv("DETA_PROJECT_KEY", "proj123_secret_token")
	t.Setenv("DETA_BASE_URL", srv.URL)

	cli, mode, err := deta.NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http", mode)

	got, err := cli.Base("users").Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got["name"])
}

func TestNewFromEnvHTTPModeRequiresKey(t *testing.T) {
	t.Setenv("DETA_SDK_MODE", "http")
	t.Setenv("DETA_PROJECT_KEY", "")

	_, _, err := deta.NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DETA_PROJECT_KEY")
}

func TestNewFromEnvAutoFallsBackToMock(t *testing.T) {
	t.Setenv("DETA_SDK_MODE", "auto")
	t.Setenv("DETA_PROJECT_KEY", "")
	t.Setenv("DETA_MOCK_SEED", "")

	cli, mode, err := deta.NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "mock", mode)

	got, err := cli.Base("users").Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewFromEnvMockModeWithSeed(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.json")
	payload := `[{"base":"users","items":[{"key":"u1","name":"alice"}]}]`
	require.NoError(t, os.WriteFile(seed, []byte(payload), 0o600))

	t.Setenv("DETA_SDK_MODE", "mock")
	t.Setenv("DETA_MOCK_SEED", seed)

	cli, mode, err := deta.NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "mock", mode)

	got, err := cli.Base("users").Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got["name"])
}

func TestNewFromEnvRejectsUnknownMode(t *testing.T) {
	t.Setenv("DETA_SDK_MODE", "carrier-pigeon")

	_, _, err := deta.NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}
