//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/fleetops/fleetwatch/internal/domain"
	"github.com/fleetops/fleetwatch/internal/identity"
	"github.com/fleetops/fleetwatch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerTokenSetsAuditAuthor(t *testing.T) {
	verifier := identity.NewTokenVerifier("test-secret-key")
	token, err := verifier.Issue(driverID, time.Hour)
	require.NoError(t, err)

	client := newTestClient().WithToken(token)
	carID := createTestCar(t)
	incident := createTestIncident(t, client, carID, nil)

	resp := client.Put(t, "/api/incidents/"+itoa(incident.ID), map[string]interface{}{
		"status": "IN_PROGRESS",
	})
	testutil.RequireStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = client.Get(t, "/api/incidents/"+itoa(incident.ID))
	var fetched domain.Incident
	testutil.DecodeJSON(t, resp, &fetched)

	require.Len(t, fetched.Updates, 1)
	assert.Equal(t, driverID, fetched.Updates[0].UserID)
	require.NotNil(t, fetched.Updates[0].User)
	assert.Equal(t, "Test Driver", fetched.Updates[0].User.Name)
}

func TestInvalidBearerTokenRejected(t *testing.T) {
	client := newRawClient().WithToken("not-a-token")

	resp := client.Get(t, "/api/incidents")
	testutil.RequireStatus(t, resp, http.StatusUnauthorized)
}

func TestExpiredBearerTokenRejected(t *testing.T) {
	verifier := identity.NewTokenVerifier("test-secret-key")
	token, err := verifier.Issue(driverID, -time.Minute)
	require.NoError(t, err)

	client := newRawClient().WithToken(token)
	resp := client.Get(t, "/api/incidents")
	testutil.RequireStatus(t, resp, http.StatusUnauthorized)
}

func TestTokenFromDifferentSecretRejected(t *testing.T) {
	other := identity.NewTokenVerifier("some-other-secret")
	token, err := other.Issue(driverID, time.Hour)
	require.NoError(t, err)

	client := newRawClient().WithToken(token)
	resp := client.Get(t, "/api/incidents")
	testutil.RequireStatus(t, resp, http.StatusUnauthorized)
}
