package ads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Mutate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/customers/1/campaigns:mutate", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body struct {
			Resource map[string]any `json:"resource"`
			Approval Approval       `json:"approval"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "PAUSED", body.Resource["status"])
		assert.True(t, body.Approval.Approved)
		assert.Equal(t, "yes pause it", body.Approval.Message)

		_, _ = w.Write([]byte(`{"resource_name":"customers/1/campaigns/9"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "tok")
	name, err := c.Mutate(context.Background(), "customers/1/campaigns", map[string]any{"status": "PAUSED"}, Approval{Approved: true, Message: "yes pause it"})
	require.NoError(t, err)
	assert.Equal(t, "customers/1/campaigns/9", name)
}

func TestClient_QueryAndCurrency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/customers/42/search", r.URL.Path)
		var body queryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Query == currencyQuery {
			_, _ = w.Write([]byte(`{"rows":[{"customer.currency_code":"EUR"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"rows":[{"campaign.id":"9","campaign.status":"ENABLED"}]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	rows, err := c.Query(context.Background(), "42", "SELECT campaign.id FROM campaign")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "9", rows[0]["campaign.id"])

	cur, err := c.Currency(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "EUR", cur)
}

func TestClient_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"token expired"}}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "tok").Query(context.Background(), "1", "SELECT x FROM y")
	var ext *ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, http.StatusForbidden, ext.StatusCode)
	assert.Equal(t, "ads query: status 403: token expired", err.Error())

	server.Close()
	_, err = NewClient(server.URL, "tok").Mutate(context.Background(), "x", nil, Approval{})
	require.ErrorAs(t, err, &ext)
	assert.Zero(t, ext.StatusCode)
	assert.NotNil(t, ext.Err)
}

func TestCurrencyFromRows(t *testing.T) {
	_, err := currencyFromRows("1", nil)
	assert.Error(t, err)
	_, err = currencyFromRows("1", []Row{{"customer.currency_code": ""}})
	assert.Error(t, err)
}
