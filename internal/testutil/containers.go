//go:build e2e

package testutil

import (
	"context"
	"fmt"
	"time"

	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// Container images
	postgresImage = "postgres:16-alpine"
	mongoImage    = "mongo:7"
	redisImage    = "redis:7-alpine"

	// Database configuration
	postgresDatabase = "surveystudio_test"
	postgresUser     = "test"
	postgresPassword = "test"
)

// Container is a started backing service plus the address tests connect to
type Container struct {
	container testcontainers.Container

	// URI is a driver-ready connection string (DSN, mongodb:// URI or host:port)
	URI string
}

// Terminate stops and removes the container
func (c *Container) Terminate(ctx context.Context) error {
	if c == nil || c.container == nil {
		return nil
	}
	return c.container.Terminate(ctx)
}

// StartPostgres starts a PostgreSQL container and returns its DSN
func StartPostgres(ctx context.Context) (*Container, error) {
	postgresC, err := postgres.Run(ctx,
		postgresImage,
		postgres.WithDatabase(postgresDatabase),
		postgres.WithUsername(postgresUser),
		postgres.WithPassword(postgresPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}

	connStr, err := postgresC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		postgresC.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &Container{container: postgresC, URI: connStr}, nil
}

// StartMongo starts a MongoDB container and returns a mongodb:// URI
func StartMongo(ctx context.Context) (*Container, error) {
	req := testcontainers.ContainerRequest{
		Image:        mongoImage,
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor: wait.ForLog("Waiting for connections").
			WithStartupTimeout(60 * time.Second),
	}
	return startGeneric(ctx, req, "27017", "mongodb://%s:%s")
}

// StartRedis starts a Redis container and returns its host:port address
func StartRedis(ctx context.Context) (*Container, error) {
	req := testcontainers.ContainerRequest{
		Image:        redisImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	}
	return startGeneric(ctx, req, "6379", "%s:%s")
}

func startGeneric(ctx context.Context, req testcontainers.ContainerRequest, port, uriFormat string) (*Container, error) {
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s container: %w", req.Image, err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get %s host: %w", req.Image, err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get %s port: %w", req.Image, err)
	}

	return &Container{container: c, URI: fmt.Sprintf(uriFormat, host, mapped.Port())}, nil
}
