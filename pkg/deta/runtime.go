package deta

import (
	"fmt"
	"os"
	"strings"

	"github.com/detaorm/base_sdk_go/internal/devseed"
	"github.com/detaorm/base_sdk_go/pkg/base"
	basemock "github.com/detaorm/base_sdk_go/pkg/base/mock"
)

const (
	envMode       = "DETA_SDK_MODE"
	envProjectKey = "DETA_PROJECT_KEY"
	envBaseURL    = "DETA_BASE_URL"
	envMockSeed   = "DETA_MOCK_SEED"

	modeAuto = "auto"
	modeHTTP = "http"
	modeMock = "mock"
)

// NewFromEnv initialises a base client from the environment and returns the
// resolved mode ("http" or "mock"). An unset DETA_SDK_MODE behaves like auto.
func NewFromEnv(opts ...base.Option) (*base.Client, string, error) {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv(envMode)))
	if mode == "" {
		mode = modeAuto
	}
	projectKey := strings.TrimSpace(os.Getenv(envProjectKey))

	switch mode {
	case modeAuto:
		if projectKey != "" {
			return newHTTPClient(projectKey, opts)
		}
		return newMockClient(opts)
	case modeHTTP:
		if projectKey == "" {
			return nil, "", fmt.Errorf("deta: HTTP mode requires %s", envProjectKey)
		}
		return newHTTPClient(projectKey, opts)
	case modeMock:
		return newMockClient(opts)
	default:
		return nil, "", fmt.Errorf("deta: unsupported %s value %q", envMode, mode)
	}
}

func newHTTPClient(projectKey string, opts []base.Option) (*base.Client, string, error) {
	if url := strings.TrimSpace(os.Getenv(envBaseURL)); url != "" {
		opts = append([]base.Option{base.WithBaseURL(url)}, opts...)
	}
	cli, err := base.New(projectKey, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("deta: init HTTP client: %w", err)
	}
	return cli, modeHTTP, nil
}

func newMockClient(opts []base.Option) (*base.Client, string, error) {
	m := basemock.New()
	if path := strings.TrimSpace(os.Getenv(envMockSeed)); path != "" {
		entries, err := devseed.LoadBaseSeed(path)
		if err != nil {
			return nil, "", fmt.Errorf("deta: load mock seed: %w", err)
		}
		if err := m.Seed(entries); err != nil {
			return nil, "", fmt.Errorf("deta: apply mock seed: %w", err)
		}
	}
	return base.NewWithBackend(m, opts...), modeMock, nil
}
