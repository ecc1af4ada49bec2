//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testDatabase = "dittodrive_test"

// sharedConfig points at the database container shared by the package tests.
var sharedConfig *PostgresDriveStoreConfig

func TestMain(m *testing.M) {
	os.Exit(runWithPostgres(m))
}

func runWithPostgres(m *testing.M) int {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase(testDatabase),
		tcpostgres.WithUsername(testDatabase),
		tcpostgres.WithPassword(testDatabase),
		testcontainers.WithWaitStrategyAndDeadline(2*time.Minute,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres container: %v\n", err)
		return 1
	}
	defer func() { _ = container.Terminate(ctx) }()

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres host: %v\n", err)
		return 1
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres port: %v\n", err)
		return 1
	}

	sharedConfig = &PostgresDriveStoreConfig{
		Host:        host,
		Port:        port.Int(),
		Database:    testDatabase,
		User:        testDatabase,
		Password:    testDatabase,
		SSLMode:     "disable",
		AutoMigrate: true,
	}
	return m.Run()
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	ctx := context.Background()
	cfg := *sharedConfig

	require.NoError(t, RunMigrations(ctx, &cfg))
	require.NoError(t, RunMigrations(ctx, &cfg))

	pool, err := openPool(ctx, &cfg)
	require.NoError(t, err)
	defer pool.Close()

	version, err := migrateUp(ctx, pool)
	require.NoError(t, err)
	require.Equal(t, uint(1), version)
}
