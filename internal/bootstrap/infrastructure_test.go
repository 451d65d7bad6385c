package bootstrap

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolGraph-Codec/internal/application/featurization"
	"github.com/turtacn/MolGraph-Codec/internal/config"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)
	return cfg
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(config.LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, log)

	log, err = NewLogger(config.LogConfig{Level: "info", Format: "json", Output: []string{"stderr"}})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNewMetrics(t *testing.T) {
	collector, metrics, err := NewMetrics(config.MetricsConfig{Namespace: "molgraph"}, nil)
	require.NoError(t, err)
	require.NotNil(t, collector)
	require.NotNil(t, metrics)

	_, _, err = NewMetrics(config.MetricsConfig{}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestOpen_NilConfig(t *testing.T) {
	_, err := Open(context.Background(), nil, nil, nil, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestInfrastructure_WithoutBackends(t *testing.T) {
	cfg := testConfig(t)
	collector, metrics, err := NewMetrics(cfg.Metrics, nil)
	require.NoError(t, err)

	infra := &Infrastructure{Config: cfg, Logger: logging.NewNopLogger(), Collector: collector, Metrics: metrics}
	assert.Nil(t, infra.GraphRepository())
	assert.Empty(t, infra.HealthCheckers())

	svc := infra.FeaturizationService()
	maxLength := 2
	res, err := svc.Featurize(context.Background(), &featurization.FeaturizeInput{SMILES: "CC=O", MaxLength: &maxLength})
	require.NoError(t, err)
	assert.Equal(t, []int{6, 6, 8}, res.Graph.Nodes)
	assert.Empty(t, res.ID)

	_, err = svc.Featurize(context.Background(), &featurization.FeaturizeInput{SMILES: "CC=O"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeTooSmall))

	handler := infra.MetricsHandler()
	require.NotNil(t, handler)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `molgraph_featurize_total{outcome="success"} 1`)

	infra.Close(context.Background())
}

func TestInfrastructure_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	collector, _, err := NewMetrics(cfg.Metrics, nil)
	require.NoError(t, err)

	infra := &Infrastructure{Config: cfg, Logger: logging.NewNopLogger(), Collector: collector}
	assert.Nil(t, infra.MetricsHandler())
}

//Personal.AI order the ending
