//go:build integration

package gormstore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marmos91/dittobox/pkg/index"
	"github.com/marmos91/dittobox/pkg/index/indextest"
)

const (
	pgUser     = "dittobox_test"
	pgPassword = "dittobox_test"
	pgDatabase = "dittobox_test"
)

// sharedPostgres is started once in TestMain and reused by every test.
var sharedPostgres *postgres.PostgresContainer

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(pgDatabase),
		postgres.WithUsername(pgUser),
		postgres.WithPassword(pgPassword),
		testcontainers.WithWaitStrategyAndDeadline(5*time.Minute,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}
	sharedPostgres = container

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

// createPostgresStore gives each test its own database on the shared server.
func createPostgresStore(t *testing.T) index.Store {
	t.Helper()
	ctx := context.Background()

	connStr, err := sharedPostgres.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	defer conn.Close(ctx)

	name := "idx_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	host, err := sharedPostgres.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := sharedPostgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	store, err := New(&index.Config{
		Type: index.DatabaseTypePostgres,
		Postgres: index.PostgresConfig{
			Host:     host,
			Port:     port.Int(),
			Database: name,
			User:     pgUser,
			Password: pgPassword,
			SSLMode:  "disable",
		},
	})
	if err != nil {
		t.Fatalf("failed to create postgres index: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresConformance(t *testing.T) {
	suite := &indextest.StoreTestSuite{NewStore: createPostgresStore}
	suite.Run(t)
}
