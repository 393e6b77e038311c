//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/fleetops/fleetwatch/internal/app"
	"github.com/fleetops/fleetwatch/internal/config"
	"github.com/fleetops/fleetwatch/internal/testutil"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	testServer     *httptest.Server
	testValidator  *testutil.OpenAPIValidator
	testDB         *pgxpool.Pool
	fakeCloudinary *httptest.Server

	// Seeded rows available to every test.
	driverID  int64
	managerID int64
)

// OpenAPI spec path relative to the tests/integration directory.
const openAPISpecPath = "../../api/openapi/openapi.yaml"

// newTestClient creates a test client with OpenAPI validation enabled.
func newTestClient() *testutil.Client {
	return testutil.NewClient(testServer.URL, testValidator)
}

// newRawClient creates a test client without OpenAPI validation, for tests
// that exercise malformed requests.
func newRawClient() *testutil.Client {
	return testutil.NewClient(testServer.URL, nil)
}

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := testutil.NewPostgresContainer(ctx)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	migrator, err := migrate.New(
		"file://../../migrations",
		pgContainer.ConnectionString,
	)
	if err != nil {
		log.Fatalf("create migrator: %v", err)
	}
	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("run migrations: %v", err)
	}

	testDB, err = pgxpool.New(ctx, pgContainer.ConnectionString)
	if err != nil {
		log.Fatalf("create test db pool: %v", err)
	}

	if err := seedFixtures(ctx); err != nil {
		log.Fatalf("seed fixtures: %v", err)
	}

	// Stand-in for the image hosting API so upload tests stay offline.
	fakeCloudinary = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"secure_url": "https://res.example.com/image/upload/v1/test.jpg",
			"public_id":  "vehicle-incidents/test",
		})
	}))

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         "0",
			MetricsPort:  "0",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: config.DatabaseConfig{
			URL:             pgContainer.ConnectionString,
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 3,
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "text",
		},
		Auth: config.AuthConfig{
			JWTSecret:     "test-secret-key",
			DefaultUserID: 0, // set below once fixtures exist
		},
		Cloudinary: config.CloudinaryConfig{
			CloudName: "testcloud",
			APIKey:    "testkey",
			APISecret: "testsecret",
			BaseURL:   fakeCloudinary.URL,
		},
	}
	cfg.Auth.DefaultUserID = managerID

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("create app: %v", err)
	}

	testServer = httptest.NewServer(application.Router())

	testValidator, err = testutil.LoadOpenAPIValidator(openAPISpecPath)
	if err != nil {
		log.Fatalf("load OpenAPI validator: %v", err)
	}

	code := m.Run()

	testServer.Close()
	fakeCloudinary.Close()
	testDB.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown app: %v", err)
	}

	os.Exit(code)
}

func seedFixtures(ctx context.Context) error {
	err := testDB.QueryRow(ctx,
		`INSERT INTO users (email, name, role) VALUES ($1, $2, $3) RETURNING id`,
		"driver@fleet.test", "Test Driver", "DRIVER",
	).Scan(&driverID)
	if err != nil {
		return err
	}

	err = testDB.QueryRow(ctx,
		`INSERT INTO users (email, name, role) VALUES ($1, $2, $3) RETURNING id`,
		"manager@fleet.test", "Test Manager", "FLEET_MANAGER",
	).Scan(&managerID)
	if err != nil {
		return err
	}

	return nil
}
