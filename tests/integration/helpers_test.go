//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fleetops/fleetwatch/internal/domain"
	"github.com/fleetops/fleetwatch/internal/testutil"
	"github.com/stretchr/testify/require"
)

var plateCounter atomic.Int64

func itoa(id int64) string {
	return fmt.Sprintf("%d", id)
}

// createTestCar inserts an ACTIVE car with a unique plate and returns its ID.
func createTestCar(t *testing.T) int64 {
	t.Helper()

	n := plateCounter.Add(1)
	var id int64
	err := testDB.QueryRow(context.Background(),
		`INSERT INTO cars (make, model, year, license_plate, vin, color, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'ACTIVE') RETURNING id`,
		"Toyota", "Camry", 2022,
		fmt.Sprintf("TST%03d", n),
		fmt.Sprintf("VIN%017d", n),
		"White",
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// createTestIncident reports an incident through the API and returns it.
func createTestIncident(t *testing.T, client *testutil.Client, carID int64, overrides map[string]interface{}) *domain.Incident {
	t.Helper()

	payload := map[string]interface{}{
		"carId":        carID,
		"reportedById": driverID,
		"title":        "Test Incident",
		"description":  "Something happened during a test drive.",
		"severity":     "MEDIUM",
		"type":         "BREAKDOWN",
		"occurredAt":   time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
	}
	for k, v := range overrides {
		payload[k] = v
	}

	resp := client.Post(t, "/api/incidents", payload)
	testutil.RequireStatus(t, resp, http.StatusCreated)

	var incident domain.Incident
	testutil.DecodeJSON(t, resp, &incident)
	return &incident
}
