package ads

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/adcrew/internal/tools"
	"github.com/jeanpaul/adcrew/internal/types"
)

func newTestRegistry(t *testing.T, svc *Memory) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry(tools.WithCurrencyLookup(svc))
	for _, tool := range Toolset(svc) {
		require.NoError(t, r.Register(tool))
	}
	return r
}

func testAccounts() map[string]Account {
	return map[string]Account{
		"42": {Currency: "EUR", Campaigns: []Row{{"campaign.id": "9", "campaign.status": "ENABLED"}}},
	}
}

var approvalHistory = []types.Message{
	{Name: "planner", Role: types.RoleAgent, Content: "May I pause campaign 9 and raise budget 3 to 25 EUR?"},
	{Name: "client", Role: types.RoleAgent, Content: "Yes, go ahead with both."},
}

func TestToolset_ReadOnly(t *testing.T) {
	svc := NewMemory(testAccounts())
	r := newTestRegistry(t, svc)

	msg := r.Dispatch(context.Background(), "executor", tools.Invocation{Name: "list_campaigns", Args: `{"customer_id":"42"}`})
	require.False(t, msg.Failed, msg.Content)
	assert.Contains(t, msg.Content, `"campaign.id":"9"`)

	msg = r.Dispatch(context.Background(), "executor", tools.Invocation{Name: "execute_query", Args: `{"customer_id":"42","query":"DELETE FROM campaign"}`})
	assert.True(t, msg.Failed)

	msg = r.Dispatch(context.Background(), "executor", tools.Invocation{Name: "list_campaigns", Args: `{"customer_id":"4-2"}`})
	assert.True(t, msg.Failed, "customer id pattern")

	msg = r.Dispatch(context.Background(), "executor", tools.Invocation{Name: "list_campaigns", Args: `{"customer_id":"7"}`})
	assert.True(t, msg.Failed)
	assert.Contains(t, msg.Content, "not found")
	assert.Empty(t, svc.Mutations())
}

func TestToolset_StatusApproval(t *testing.T) {
	t.Run("flag false never mutates", func(t *testing.T) {
		svc := NewMemory(testAccounts())
		r := newTestRegistry(t, svc)
		msg := r.Dispatch(context.Background(), "executor", tools.Invocation{
			Name:    "update_campaign_status",
			Args:    `{"customer_id":"42","campaign_id":"9","status":"PAUSED","client_approved_modification":false,"clients_approval_message":"Yes, go ahead with both."}`,
			History: approvalHistory,
		})
		assert.Equal(t, tools.RefusalNotApproved, msg.Content)
		assert.Empty(t, svc.Mutations())
	})

	t.Run("approved mutates exactly once", func(t *testing.T) {
		svc := NewMemory(testAccounts())
		r := newTestRegistry(t, svc)
		msg := r.Dispatch(context.Background(), "executor", tools.Invocation{
			Name:    "update_campaign_status",
			Args:    `{"customer_id":"42","campaign_id":"9","status":"PAUSED","client_approved_modification":true,"clients_approval_message":"Yes, go ahead with both."}`,
			History: approvalHistory,
		})
		require.False(t, msg.Failed, msg.Content)
		assert.Equal(t, "Campaign customers/42/campaigns/9 is now PAUSED.", msg.Content)

		muts := svc.Mutations()
		require.Len(t, muts, 1)
		assert.Equal(t, "customers/42/campaigns", muts[0].Endpoint)
		assert.Equal(t, Approval{Approved: true, Message: "Yes, go ahead with both."}, muts[0].Approval)
	})
}

func TestToolset_BudgetCurrencyGuard(t *testing.T) {
	args := func(currency string) string {
		return `{"customer_id":"42","budget_id":"3","amount":25,"currency":"` + currency +
			`","client_approved_modification":true,"clients_approval_message":"Yes, go ahead with both."}`
	}

	t.Run("mismatch names both currencies", func(t *testing.T) {
		svc := NewMemory(testAccounts())
		r := newTestRegistry(t, svc)
		_, err := r.Execute(context.Background(), tools.Invocation{Name: "update_campaign_budget", Args: args("USD"), History: approvalHistory})
		var mismatch *tools.CurrencyMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Contains(t, err.Error(), "USD")
		assert.Contains(t, err.Error(), "EUR")
		assert.Empty(t, svc.Mutations())
	})

	t.Run("match converts to micros", func(t *testing.T) {
		svc := NewMemory(testAccounts())
		r := newTestRegistry(t, svc)
		msg := r.Dispatch(context.Background(), "executor", tools.Invocation{Name: "update_campaign_budget", Args: args("eur"), History: approvalHistory})
		require.False(t, msg.Failed, msg.Content)
		assert.Contains(t, msg.Content, "25.00 EUR (25000000 micros)")

		muts := svc.Mutations()
		require.Len(t, muts, 1)
		res := muts[0].Resource.(map[string]any)
		assert.Equal(t, int64(25_000_000), res["amount_micros"])
	})

	t.Run("zero amount rejected", func(t *testing.T) {
		svc := NewMemory(testAccounts())
		r := newTestRegistry(t, svc)
		msg := r.Dispatch(context.Background(), "executor", tools.Invocation{
			Name:    "update_campaign_budget",
			Args:    `{"customer_id":"42","budget_id":"3","amount":0,"currency":"EUR","client_approved_modification":true,"clients_approval_message":"Yes, go ahead with both."}`,
			History: approvalHistory,
		})
		assert.True(t, msg.Failed)
		assert.Empty(t, svc.Mutations())
	})

	t.Run("amount beyond the cap rejected", func(t *testing.T) {
		svc := NewMemory(testAccounts())
		r := newTestRegistry(t, svc)
		msg := r.Dispatch(context.Background(), "executor", tools.Invocation{
			Name:    "update_campaign_budget",
			Args:    `{"customer_id":"42","budget_id":"3","amount":10000000000000,"currency":"EUR","client_approved_modification":true,"clients_approval_message":"Yes, go ahead with both."}`,
			History: approvalHistory,
		})
		assert.True(t, msg.Failed)
		assert.NotContains(t, msg.Content, "micros")
		assert.Empty(t, svc.Mutations())
	})
}
