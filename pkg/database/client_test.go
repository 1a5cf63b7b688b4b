package database

import (
	"context"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/feedforward/feedforward/ent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestClient creates a test database client against a disposable
// PostgreSQL container, schema created via Ent's auto-migration rather
// than the golang-migrate path (so tests stay independent of the SQL
// migration files tracking in lockstep with ent/schema).
func newTestClient(t *testing.T) *Client {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	drv, err := sql.Open(dialect.Postgres, connStr)
	require.NoError(t, err)

	db := drv.DB()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	entClient := ent.NewClient(ent.Driver(drv))

	err = entClient.Schema.Create(ctx)
	require.NoError(t, err)

	err = CreateGINIndexes(ctx, drv)
	require.NoError(t, err)

	client := NewClientFromEnt(entClient, db)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestDatabaseClient_ConnectionPool(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	err := client.DB().PingContext(ctx)
	require.NoError(t, err)

	health, err := Health(ctx, client.DB())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Greater(t, health.MaxOpenConns, 0)
}

func TestStoryDescriptionFullTextSearch(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	run, err := client.PipelineRun.Create().
		SetID("run-1").
		SetWindowStart(time.Now().Add(-24 * time.Hour)).
		SetWindowEnd(time.Now()).
		Save(ctx)
	require.NoError(t, err)

	story1, err := client.Story.Create().
		SetID("story-1").
		SetRunID(run.ID).
		SetSignature("sig-1").
		SetTitle("Export button fails for large CSV files").
		SetDescription("Several customers report timeouts exporting large datasets to CSV").
		SetActionType("bug_report").
		SetDirection("deficit").
		SetConversationCount(5).
		SetConfidenceScore(0.8).
		Save(ctx)
	require.NoError(t, err)

	story2, err := client.Story.Create().
		SetID("story-2").
		SetRunID(run.ID).
		SetSignature("sig-2").
		SetTitle("Request for dark mode").
		SetDescription("Multiple users asked about a dark color theme for the dashboard").
		SetActionType("feature_request").
		SetDirection("creation").
		SetConversationCount(3).
		SetConfidenceScore(0.6).
		Save(ctx)
	require.NoError(t, err)

	rows, err := client.DB().QueryContext(ctx,
		`SELECT id FROM stories WHERE to_tsvector('english', description) @@ to_tsquery('english', $1)`,
		"export & timeout")
	require.NoError(t, err)
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	assert.Equal(t, []string{story1.ID}, ids)

	rows2, err := client.DB().QueryContext(ctx,
		`SELECT id FROM stories WHERE to_tsvector('english', description) @@ to_tsquery('english', $1)`,
		"dark")
	require.NoError(t, err)
	defer rows2.Close()

	var ids2 []string
	for rows2.Next() {
		var id string
		require.NoError(t, rows2.Scan(&id))
		ids2 = append(ids2, id)
	}
	assert.Equal(t, []string{story2.ID}, ids2)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", SSLMode: "disable", MaxOpenConns: 10, MaxIdleConns: 5,
			},
			wantErr: false,
		},
		{
			name: "missing password",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "",
				Database: "test", MaxOpenConns: 10, MaxIdleConns: 5,
			},
			wantErr: true,
		},
		{
			name: "idle conns exceed max conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", MaxOpenConns: 5, MaxIdleConns: 10,
			},
			wantErr: true,
		},
		{
			name: "zero max open conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", MaxOpenConns: 0, MaxIdleConns: 0,
			},
			wantErr: true,
		},
		{
			name: "negative idle conns",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", MaxOpenConns: 10, MaxIdleConns: -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
