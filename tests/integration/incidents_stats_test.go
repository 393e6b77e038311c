//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/fleetops/fleetwatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statsResponse struct {
	Total             int            `json:"total"`
	ByStatus          map[string]int `json:"byStatus"`
	BySeverity        map[string]int `json:"bySeverity"`
	AvgResolutionTime int            `json:"avgResolutionTime"`
	OpenIncidents     int            `json:"openIncidents"`
}

// The database is shared across the suite, so stats assertions are
// relational rather than absolute.
func TestIncidentStats(t *testing.T) {
	client := newTestClient()
	carID := createTestCar(t)

	createTestIncident(t, client, carID, map[string]interface{}{"severity": "CRITICAL"})
	inProgress := createTestIncident(t, client, carID, nil)
	resp := client.Put(t, "/api/incidents/"+itoa(inProgress.ID), map[string]interface{}{
		"status": "IN_PROGRESS",
	})
	testutil.RequireStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = client.Get(t, "/api/incidents/stats")
	testutil.RequireStatus(t, resp, http.StatusOK)

	var stats statsResponse
	testutil.DecodeJSON(t, resp, &stats)

	assert.GreaterOrEqual(t, stats.Total, 2)

	sum := 0
	for _, count := range stats.ByStatus {
		sum += count
	}
	assert.Equal(t, stats.Total, sum)

	sum = 0
	for _, count := range stats.BySeverity {
		sum += count
	}
	assert.Equal(t, stats.Total, sum)

	assert.Equal(t, stats.ByStatus["PENDING"]+stats.ByStatus["IN_PROGRESS"], stats.OpenIncidents)
	assert.GreaterOrEqual(t, stats.BySeverity["CRITICAL"], 1)

	// Zero-count buckets are absent, never present with value 0.
	for _, count := range stats.ByStatus {
		assert.Positive(t, count)
	}
	for _, count := range stats.BySeverity {
		assert.Positive(t, count)
	}
}

func TestIncidentStatsAvgResolutionTime(t *testing.T) {
	client := newTestClient()
	carID := createTestCar(t)

	incident := createTestIncident(t, client, carID, nil)
	resp := client.Put(t, "/api/incidents/"+itoa(incident.ID), map[string]interface{}{
		"status": "RESOLVED",
	})
	testutil.RequireStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = client.Get(t, "/api/incidents/stats")
	testutil.RequireStatus(t, resp, http.StatusOK)

	var stats statsResponse
	testutil.DecodeJSON(t, resp, &stats)

	require.GreaterOrEqual(t, stats.ByStatus["RESOLVED"], 1)
	// Resolution happened moments after reporting, so the average stays small.
	assert.GreaterOrEqual(t, stats.AvgResolutionTime, 0)
}
