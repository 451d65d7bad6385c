//go:build e2e

// Package e2e drives a running codec API through the Go SDK.  By default it
// starts PostgreSQL and Redis containers and serves the API in-process; set
// MOLGRAPH_E2E_BASE_URL to test an external deployment instead.
package e2e_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/MolGraph-Codec/internal/bootstrap"
	"github.com/turtacn/MolGraph-Codec/internal/config"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/database/postgres"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/MolGraph-Codec/internal/interfaces/http"
	"github.com/turtacn/MolGraph-Codec/internal/interfaces/http/handlers"
	"github.com/turtacn/MolGraph-Codec/pkg/client"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
	"github.com/turtacn/MolGraph-Codec/pkg/types/common"
	mgtypes "github.com/turtacn/MolGraph-Codec/pkg/types/molgraph"
)

type CodecE2ESuite struct {
	suite.Suite
	client   *client.Client
	cleanups []func()
}

func TestCodecE2E(t *testing.T) {
	suite.Run(t, new(CodecE2ESuite))
}

func (s *CodecE2ESuite) SetupSuite() {
	if url := os.Getenv("MOLGRAPH_E2E_BASE_URL"); url != "" {
		c, err := client.NewClient(url, client.WithAPIKey(os.Getenv("MOLGRAPH_E2E_API_KEY")))
		s.Require().NoError(err)
		s.client = c
		s.Require().NoError(waitReady(c, 30*time.Second))
		return
	}
	s.client = s.startEmbedded()
}

func (s *CodecE2ESuite) TearDownSuite() {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
}

func (s *CodecE2ESuite) startEmbedded() *client.Client {
	ctx := context.Background()
	cfg, err := config.LoadFromEnv()
	s.Require().NoError(err)

	pgHost, pgPort := s.startContainer(ctx, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env:          map[string]string{"POSTGRES_USER": "e2e", "POSTGRES_PASSWORD": "e2e", "POSTGRES_DB": "molgraph_e2e"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}, "5432/tcp")
	cfg.Database.Host, cfg.Database.Port = pgHost, pgPort
	cfg.Database.User, cfg.Database.Password, cfg.Database.DBName = "e2e", "e2e", "molgraph_e2e"
	cfg.Database.MigrationPath = migrationsDir(s.T())

	redisHost, redisPort := s.startContainer(ctx, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}, "6379/tcp")
	cfg.Redis.Addr = fmt.Sprintf("%s:%d", redisHost, redisPort)
	cfg.Codec.PersistGraphs = true

	m, err := postgres.NewMigrator(cfg.Database, logging.NewNopLogger())
	s.Require().NoError(err)
	s.Require().NoError(m.Up())
	s.Require().NoError(m.Close())

	collector, metrics, err := bootstrap.NewMetrics(cfg.Metrics, nil)
	s.Require().NoError(err)
	infra, err := bootstrap.Open(ctx, cfg, logging.NewNopLogger(), collector, metrics)
	s.Require().NoError(err)
	s.cleanups = append(s.cleanups, func() { infra.Close(context.Background()) })

	gin.SetMode(gin.TestMode)
	router := httpserver.NewRouter(httpserver.RouterConfig{
		FeaturizationHandler: handlers.NewFeaturizationHandler(infra.FeaturizationService(), cfg.Codec.BatchLimit),
		HealthHandler:        handlers.NewHealthHandler("e2e", metrics, infra.HealthCheckers()...),
		Metrics:              metrics,
		MetricsHandler:       infra.MetricsHandler(),
	})
	srv := httptest.NewServer(router)
	s.cleanups = append(s.cleanups, srv.Close)

	c, err := client.NewClient(srv.URL)
	s.Require().NoError(err)
	return c
}

func (s *CodecE2ESuite) startContainer(ctx context.Context, req testcontainers.ContainerRequest, port nat.Port) (string, int) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	s.Require().NoError(err)
	s.cleanups = append(s.cleanups, func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	s.Require().NoError(err)
	mapped, err := container.MappedPort(ctx, port)
	s.Require().NoError(err)
	n, err := strconv.Atoi(mapped.Port())
	s.Require().NoError(err)
	return host, n
}

func (s *CodecE2ESuite) TestReady() {
	s.NoError(s.client.Ready(context.Background()))
}

func (s *CodecE2ESuite) TestFeaturizePersistAndFetch() {
	ctx := context.Background()
	maxLength := 3
	first, err := s.client.Featurize(ctx, &mgtypes.FeaturizeRequest{SMILES: "OCC=O", MaxLength: &maxLength, Persist: true})
	s.Require().NoError(err)
	s.Require().NotEmpty(first.ID)
	s.Equal([]int{8, 6, 6, 8}, first.Nodes)

	again, err := s.client.Featurize(ctx, &mgtypes.FeaturizeRequest{SMILES: "OCC=O", MaxLength: &maxLength, Persist: true})
	s.Require().NoError(err)
	s.Equal(first.ID, again.ID)
	s.True(again.Cached)

	stored, err := s.client.GetGraph(ctx, first.ID)
	s.Require().NoError(err)
	s.Equal("OCC=O", stored.SMILES)
	s.Equal(first.Edges, stored.Edges)
}

func (s *CodecE2ESuite) TestRoundTrip() {
	ctx := context.Background()
	enc, err := s.client.Featurize(ctx, &mgtypes.FeaturizeRequest{SMILES: "CC#N", Pad: true})
	s.Require().NoError(err)
	s.Len(enc.Nodes, enc.MaxLength+1)

	req := &mgtypes.DefeaturizeRequest{TrimPadding: true}
	for _, n := range enc.Nodes {
		req.Nodes = append(req.Nodes, float64(n))
	}
	for _, row := range enc.Edges {
		r := make([]float64, len(row))
		for j, v := range row {
			r[j] = float64(v)
		}
		req.Edges = append(req.Edges, r)
	}
	dec, err := s.client.Defeaturize(ctx, req)
	s.Require().NoError(err)
	s.Equal("CC#N", dec.SMILES)
	s.Zero(dec.DroppedEdges)
}

func (s *CodecE2ESuite) TestBatchReportsItemFailures() {
	maxLength := 2
	res, err := s.client.FeaturizeBatch(context.Background(), &mgtypes.BatchFeaturizeRequest{
		SMILES:    []string{"CCO", "C", "not-a-smiles"},
		MaxLength: &maxLength,
	})
	s.Require().NoError(err)
	s.Equal(3, res.TotalProcessed)
	s.Len(res.Succeeded, 1)
	s.Len(res.Failed, 2)
}

func (s *CodecE2ESuite) TestListAndDeleteGraph() {
	ctx := context.Background()
	maxLength := 3
	created, err := s.client.Featurize(ctx, &mgtypes.FeaturizeRequest{SMILES: "NCC=O", MaxLength: &maxLength, Persist: true})
	s.Require().NoError(err)
	s.Require().NotEmpty(created.ID)

	list, err := s.client.ListGraphs(ctx, common.Pagination{Page: 1, PageSize: common.MaxPageSize})
	s.Require().NoError(err)
	s.GreaterOrEqual(list.Pagination.Total, int64(1))
	var ids []string
	for _, g := range list.Graphs {
		ids = append(ids, g.ID)
	}
	s.Contains(ids, created.ID)

	s.Require().NoError(s.client.DeleteGraph(ctx, created.ID))
	_, err = s.client.GetGraph(ctx, created.ID)
	var apiErr *client.APIError
	s.Require().ErrorAs(err, &apiErr)
	s.True(apiErr.IsNotFound())

	again, err := s.client.Featurize(ctx, &mgtypes.FeaturizeRequest{SMILES: "NCC=O", MaxLength: &maxLength, Persist: true})
	s.Require().NoError(err)
	s.False(again.Cached)
	s.NotEqual(created.ID, again.ID)
}

func (s *CodecE2ESuite) TestUnknownGraph() {
	_, err := s.client.GetGraph(context.Background(), "00000000-0000-4000-8000-000000000000")
	var apiErr *client.APIError
	s.Require().ErrorAs(err, &apiErr)
	s.True(apiErr.HasCode(errors.ErrCodeGraphNotFound))
}

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "internal", "infrastructure", "database", "postgres", "migrations")
}

func waitReady(c *client.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ready(ctx)
		cancel()
		if err == nil || time.Now().After(deadline) {
			return err
		}
		time.Sleep(500 * time.Millisecond)
	}
}

//Personal.AI order the ending
