// Package testhelpers provides shared fixtures for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Neo4jTestImage is the image backing the cypher executor integration tests.
const Neo4jTestImage = "neo4j:5-community"

// GraphDB holds a shared neo4j test container and its bolt coordinates.
type GraphDB struct {
	Container testcontainers.Container
	BoltURL   string
	Username  string
	Password  string
}

var (
	sharedGraphDB     *GraphDB
	sharedGraphDBOnce sync.Once
	sharedGraphDBErr  error
)

// GetGraphDB returns a shared neo4j container for integration tests.
// The container is created once and reused across all tests in the run.
func GetGraphDB(t *testing.T) *GraphDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedGraphDBOnce.Do(func() {
		sharedGraphDB, sharedGraphDBErr = setupGraphDB()
	})

	if sharedGraphDBErr != nil {
		t.Fatalf("Failed to setup test graph database: %v", sharedGraphDBErr)
	}

	return sharedGraphDB
}

func setupGraphDB() (*GraphDB, error) {
	ctx := context.Background()

	const password = "testpassword"

	req := testcontainers.ContainerRequest{
		Image:        Neo4jTestImage,
		ExposedPorts: []string{"7687/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH": "neo4j/" + password,
		},
		WaitingFor: wait.ForLog("Bolt enabled on").
			WithStartupTimeout(120 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start neo4j container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "7687")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	return &GraphDB{
		Container: container,
		BoltURL:   fmt.Sprintf("bolt://%s:%s", host, port.Port()),
		Username:  "neo4j",
		Password:  password,
	}, nil
}
