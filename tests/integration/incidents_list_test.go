//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/fleetops/fleetwatch/internal/domain"
	"github.com/fleetops/fleetwatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listResponse struct {
	Incidents  []*domain.Incident `json:"incidents"`
	Pagination struct {
		Total      int `json:"total"`
		Page       int `json:"page"`
		Limit      int `json:"limit"`
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}

func TestListIncidentsFilterByCar(t *testing.T) {
	client := newTestClient()
	carID := createTestCar(t)

	createTestIncident(t, client, carID, map[string]interface{}{"severity": "LOW"})
	createTestIncident(t, client, carID, map[string]interface{}{"severity": "HIGH"})

	resp := client.Get(t, "/api/incidents?carId="+itoa(carID))
	testutil.RequireStatus(t, resp, http.StatusOK)

	var result listResponse
	testutil.DecodeJSON(t, resp, &result)

	assert.Equal(t, 2, result.Pagination.Total)
	assert.Equal(t, 1, result.Pagination.Page)
	assert.Equal(t, 10, result.Pagination.Limit)
	assert.Equal(t, 1, result.Pagination.TotalPages)
	require.Len(t, result.Incidents, 2)
	for _, incident := range result.Incidents {
		assert.Equal(t, carID, incident.CarID)
	}
}

func TestListIncidentsOrderedNewestFirst(t *testing.T) {
	client := newTestClient()
	carID := createTestCar(t)

	first := createTestIncident(t, client, carID, map[string]interface{}{"title": "First"})
	second := createTestIncident(t, client, carID, map[string]interface{}{"title": "Second"})

	resp := client.Get(t, "/api/incidents?carId="+itoa(carID))
	testutil.RequireStatus(t, resp, http.StatusOK)

	var result listResponse
	testutil.DecodeJSON(t, resp, &result)

	require.Len(t, result.Incidents, 2)
	assert.Equal(t, second.ID, result.Incidents[0].ID)
	assert.Equal(t, first.ID, result.Incidents[1].ID)
}

func TestListIncidentsPagination(t *testing.T) {
	client := newTestClient()
	carID := createTestCar(t)

	for i := 0; i < 5; i++ {
		createTestIncident(t, client, carID, nil)
	}

	resp := client.Get(t, "/api/incidents?carId="+itoa(carID)+"&page=2&limit=2")
	testutil.RequireStatus(t, resp, http.StatusOK)

	var result listResponse
	testutil.DecodeJSON(t, resp, &result)

	assert.Equal(t, 5, result.Pagination.Total)
	assert.Equal(t, 2, result.Pagination.Page)
	assert.Equal(t, 2, result.Pagination.Limit)
	assert.Equal(t, 3, result.Pagination.TotalPages)
	assert.Len(t, result.Incidents, 2)

	// A page past the end is empty, not an error.
	resp = client.Get(t, "/api/incidents?carId="+itoa(carID)+"&page=9&limit=2")
	testutil.RequireStatus(t, resp, http.StatusOK)
	testutil.DecodeJSON(t, resp, &result)
	assert.Empty(t, result.Incidents)
	assert.Equal(t, 5, result.Pagination.Total)
}

func TestListIncidentsTextSearch(t *testing.T) {
	client := newTestClient()
	carID := createTestCar(t)

	createTestIncident(t, client, carID, map[string]interface{}{
		"title":       "Hailstorm Damage",
		"description": "Dents on the hood.",
	})
	createTestIncident(t, client, carID, map[string]interface{}{
		"title":       "Routine Note",
		"description": "Observed a HAILSTORM nearby.",
	})
	createTestIncident(t, client, carID, map[string]interface{}{
		"title":       "Unrelated",
		"description": "Nothing to see.",
	})

	resp := client.Get(t, "/api/incidents?carId="+itoa(carID)+"&query=hailstorm")
	testutil.RequireStatus(t, resp, http.StatusOK)

	var result listResponse
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, 2, result.Pagination.Total)
}

func TestListIncidentsStatusAndSeverityFilter(t *testing.T) {
	client := newTestClient()
	carID := createTestCar(t)

	createTestIncident(t, client, carID, map[string]interface{}{"severity": "CRITICAL"})
	incident := createTestIncident(t, client, carID, map[string]interface{}{"severity": "LOW"})

	resp := client.Put(t, "/api/incidents/"+itoa(incident.ID), map[string]interface{}{
		"status": "IN_PROGRESS",
	})
	testutil.RequireStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = client.Get(t, "/api/incidents?carId="+itoa(carID)+"&status=IN_PROGRESS")
	testutil.RequireStatus(t, resp, http.StatusOK)

	var result listResponse
	testutil.DecodeJSON(t, resp, &result)
	require.Equal(t, 1, result.Pagination.Total)
	assert.Equal(t, incident.ID, result.Incidents[0].ID)

	resp = client.Get(t, "/api/incidents?carId="+itoa(carID)+"&severity=CRITICAL")
	testutil.RequireStatus(t, resp, http.StatusOK)
	testutil.DecodeJSON(t, resp, &result)
	require.Equal(t, 1, result.Pagination.Total)
	assert.Equal(t, domain.IncidentSeverityCritical, result.Incidents[0].Severity)
}

func TestListIncidentsDateRange(t *testing.T) {
	client := newTestClient()
	carID := createTestCar(t)

	old := time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	createTestIncident(t, client, carID, map[string]interface{}{
		"occurredAt": old.Format(time.RFC3339),
	})
	target := createTestIncident(t, client, carID, map[string]interface{}{
		"occurredAt": recent.Format(time.RFC3339),
	})

	resp := client.Get(t, "/api/incidents?carId="+itoa(carID)+"&startDate=2024-01-01&endDate=2024-12-31")
	testutil.RequireStatus(t, resp, http.StatusOK)

	var result listResponse
	testutil.DecodeJSON(t, resp, &result)
	require.Equal(t, 1, result.Pagination.Total)
	assert.Equal(t, target.ID, result.Incidents[0].ID)

	// Bounds are inclusive.
	resp = client.Get(t, "/api/incidents?carId="+itoa(carID)+"&startDate="+recent.Format(time.RFC3339)+"&endDate="+recent.Format(time.RFC3339))
	testutil.RequireStatus(t, resp, http.StatusOK)
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, 1, result.Pagination.Total)
}

func TestListIncidentsInvalidParams(t *testing.T) {
	client := newRawClient()

	for _, path := range []string{
		"/api/incidents?page=zero",
		"/api/incidents?limit=-1",
		"/api/incidents?status=BROKEN",
		"/api/incidents?severity=MEH",
		"/api/incidents?carId=abc",
		"/api/incidents?startDate=notadate",
	} {
		resp := client.Get(t, path)
		testutil.RequireStatus(t, resp, http.StatusBadRequest)
	}
}
