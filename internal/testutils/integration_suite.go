package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"aipipeline/internal/config"
)

type IntegrationSuite struct {
	T   *testing.T
	DB  *sql.DB
	NSQ *nsq.Producer

	// Containers
	pgContainer  *postgres.PostgresContainer
	nsqContainer testcontainers.Container
}

func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	return &IntegrationSuite{T: t}
}

func (s *IntegrationSuite) Setup() {
	ctx := context.Background()

	// 1. Postgres
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("aipipeline_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(s.T, err)
	s.pgContainer = pgContainer

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T, err)

	s.DB, err = sql.Open("postgres", connStr)
	require.NoError(s.T, err)

	// Run Migrations
	m, err := migrate.New(s.migrationPath(), connStr)
	require.NoError(s.T, err)
	require.NoError(s.T, m.Up())

	// 2. NSQ
	nsqReq := testcontainers.ContainerRequest{
		Image:        "nsqio/nsq:v1.3.0",
		ExposedPorts: []string{"4150/tcp", "4151/tcp"},
		Cmd:          []string{"/nsqd", "--broadcast-address=localhost"},
		WaitingFor:   wait.ForLog("TCP: listening on").WithStartupTimeout(60 * time.Second),
	}
	nsqC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: nsqReq,
		Started:          true,
	})
	require.NoError(s.T, err)
	s.nsqContainer = nsqC

	nsqHost, err := nsqC.Host(ctx)
	require.NoError(s.T, err)
	nsqPort, err := nsqC.MappedPort(ctx, "4150")
	require.NoError(s.T, err)

	nsqCfg := nsq.NewConfig()
	s.NSQ, err = nsq.NewProducer(fmt.Sprintf("%s:%s", nsqHost, nsqPort.Port()), nsqCfg)
	require.NoError(s.T, err)
}

// GetAppConfig builds a Config pointing at the containerized
// infrastructure, suitable for driving the whole app in tests.
func (s *IntegrationSuite) GetAppConfig() *config.Config {
	ctx := context.Background()

	pgHost, err := s.pgContainer.Host(ctx)
	require.NoError(s.T, err)
	pgPort, err := s.pgContainer.MappedPort(ctx, "5432")
	require.NoError(s.T, err)

	nsqHost, err := s.nsqContainer.Host(ctx)
	require.NoError(s.T, err)
	nsqPort, err := s.nsqContainer.MappedPort(ctx, "4150")
	require.NoError(s.T, err)
	nsqHTTPPort, err := s.nsqContainer.MappedPort(ctx, "4151")
	require.NoError(s.T, err)

	return &config.Config{
		DBHost: pgHost,
		DBPort: pgPort.Int(),
		DBUser: "test",
		DBPass: "test",
		DBName: "aipipeline_test",

		UUIDEndpoint:       "https://httpbin.org/uuid",
		CallTimeoutSeconds: 5,
		BatchSize:          3,
		GeminiModel:        "gemini-1.5-flash",
		EnrichmentRPS:      2,

		NSQDHost: fmt.Sprintf("%s:%s", nsqHost, nsqPort.Port()),
		NSQDHTTP: fmt.Sprintf("%s:%s", nsqHost, nsqHTTPPort.Port()),

		EnableAPI:     true,
		NotifyLogPath: s.T.TempDir() + "/notifications.log",
		MigrationPath: s.migrationPath(),
		ServerPort:    8082,

		BootstrapRetryAttempts:     3,
		BootstrapRetryDelaySeconds: 1,
	}
}

func (s *IntegrationSuite) migrationPath() string {
	_, b, _, _ := runtime.Caller(0)
	basepath := filepath.Dir(b)
	return fmt.Sprintf("file://%s/../../migrations", basepath)
}

func (s *IntegrationSuite) Teardown() {
	ctx := context.Background()
	if s.NSQ != nil {
		s.NSQ.Stop()
	}
	if s.pgContainer != nil {
		s.pgContainer.Terminate(ctx)
	}
	if s.nsqContainer != nil {
		s.nsqContainer.Terminate(ctx)
	}
}
