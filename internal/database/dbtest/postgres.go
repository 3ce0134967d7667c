// Package dbtest starts a throwaway PostgreSQL container for integration
// tests. Tests are skipped unless DOCKER_AVAILABLE is "true" or "1".
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/stwalsh4118/loadcalc/api/internal/config"
)

const (
	image    = "postgres:16-alpine"
	user     = "loadcalc"
	password = "loadcalc"
	dbName   = "loadcalc_test"
)

// Start runs a PostgreSQL container for the duration of t and returns a
// config pointing at it.
func Start(t *testing.T) config.DatabaseConfig {
	t.Helper()
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        image,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     user,
			"POSTGRES_PASSWORD": password,
			"POSTGRES_DB":       dbName,
		},
		// The entrypoint restarts the server once after init.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port.Port(),
		Name:     dbName,
		User:     user,
		Password: password,
		PoolMin:  1,
		PoolMax:  4,
	}
}
