package tools

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/adcrew/internal/types"
)

type pauseArgs struct {
	CampaignID string `json:"campaign_id"`
}

func gatedTool(calls *atomic.Int32) Tool {
	return NewCommand(Spec{
		Name:       "pause_campaign",
		SideEffect: MutatingGated,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"campaign_id": map[string]any{"type": "string"},
			},
			"required": []string{"campaign_id"},
		},
	}, func(_ context.Context, _ Invocation, a pauseArgs) (string, error) {
		calls.Add(1)
		return "paused " + a.CampaignID, nil
	})
}

func TestApprovalGate_Schema(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry()
	require.NoError(t, r.Register(gatedTool(&calls)))

	defs := r.ToolDefs()
	require.Len(t, defs, 1)
	params := defs[0].Parameters.(map[string]any)
	props := params["properties"].(map[string]any)
	assert.Contains(t, props, ApprovalFlagField)
	assert.Contains(t, props, ApprovalMessageField)
	assert.Contains(t, props, "campaign_id")
	assert.ElementsMatch(t, []string{"campaign_id", ApprovalFlagField, ApprovalMessageField}, params["required"])
}

func TestApprovalGate(t *testing.T) {
	history := []types.Message{
		{Name: "planner", Role: types.RoleAgent, Content: "Shall I pause campaign 42?"},
		{Name: "client", Role: types.RoleAgent, Content: "Yes,  please pause\ncampaign 42."},
	}

	tests := []struct {
		name      string
		args      string
		history   []types.Message
		wantOut   string
		wantCalls int32
	}{
		{
			name:    "flag false",
			args:    `{"campaign_id":"42","client_approved_modification":false,"clients_approval_message":"yes please pause campaign 42"}`,
			history: history,
			wantOut: RefusalNotApproved,
		},
		{
			name:    "flag missing",
			args:    `{"campaign_id":"42"}`,
			history: history,
			wantOut: RefusalNotApproved,
		},
		{
			name:    "approval not in history",
			args:    `{"campaign_id":"42","client_approved_modification":true,"clients_approval_message":"go ahead"}`,
			history: history,
			wantOut: `The approval message "go ahead" does not appear`,
		},
		{
			name:    "empty approval message",
			args:    `{"campaign_id":"42","client_approved_modification":true,"clients_approval_message":""}`,
			history: history,
			wantOut: "does not appear",
		},
		{
			name:      "approved",
			args:      `{"campaign_id":"42","client_approved_modification":true,"clients_approval_message":"please pause campaign 42"}`,
			history:   history,
			wantOut:   "paused 42",
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			r := NewRegistry()
			require.NoError(t, r.Register(gatedTool(&calls)))

			msg := r.Dispatch(context.Background(), "executor", Invocation{Name: "pause_campaign", Args: tt.args, History: tt.history})
			assert.False(t, msg.Failed)
			assert.Contains(t, msg.Content, tt.wantOut)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestApprovalGate_IgnoresFunctionCallText(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry()
	require.NoError(t, r.Register(gatedTool(&calls)))

	history := []types.Message{
		{Name: "planner", Role: types.RoleAgent, FunctionCall: &types.FunctionCall{Name: "pause_campaign", Arguments: `approved by me`}, Content: "approved by me"},
		{Name: "executor", Role: types.RoleFunctionResult, Content: "approved by me"},
	}
	msg := r.Dispatch(context.Background(), "executor", Invocation{
		Name:    "pause_campaign",
		Args:    `{"campaign_id":"1","client_approved_modification":true,"clients_approval_message":"approved by me"}`,
		History: history,
	})
	assert.Contains(t, msg.Content, "does not appear")
	assert.Zero(t, calls.Load())
}

func TestApprovalGate_OnlyApproversCount(t *testing.T) {
	args := `{"campaign_id":"42","client_approved_modification":true,"clients_approval_message":"pause campaign 42"}`
	ownWords := []types.Message{
		{Name: "planner", Role: types.RoleAgent, Content: "I will pause campaign 42 now."},
	}

	var calls atomic.Int32
	r := NewRegistry()
	require.NoError(t, r.Register(gatedTool(&calls)))
	msg := r.Dispatch(context.Background(), "executor", Invocation{Name: "pause_campaign", Args: args, History: ownWords})
	assert.Contains(t, msg.Content, "does not appear")
	assert.Zero(t, calls.Load())

	r = NewRegistry(WithApprovers("owner"))
	require.NoError(t, r.Register(gatedTool(&calls)))
	clientSaid := []types.Message{{Name: "client", Role: types.RoleAgent, Content: "pause campaign 42"}}
	msg = r.Dispatch(context.Background(), "executor", Invocation{Name: "pause_campaign", Args: args, History: clientSaid})
	assert.Contains(t, msg.Content, "does not appear", "client is not an approver of this registry")

	ownerSaid := []types.Message{{Name: "owner", Role: types.RoleAgent, Content: "Sure, pause campaign 42."}}
	msg = r.Dispatch(context.Background(), "executor", Invocation{Name: "pause_campaign", Args: args, History: ownerSaid})
	assert.Contains(t, msg.Content, "paused 42")
	assert.Equal(t, int32(1), calls.Load())
}

type budgetArgs struct {
	CustomerID string  `json:"customer_id"`
	Currency   string  `json:"currency"`
	Amount     float64 `json:"amount"`
}

type fakeLookup struct {
	currency string
	err      error
}

func (f fakeLookup) Currency(context.Context, string) (string, error) { return f.currency, f.err }

func budgetTool(calls *atomic.Int32) Tool {
	return NewCommand(Spec{
		Name:       "set_budget",
		SideEffect: MutatingGated,
		Currency:   &CurrencyFields{CustomerID: "customer_id", Currency: "currency"},
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"customer_id": map[string]any{"type": "string"},
				"currency":    map[string]any{"type": "string"},
				"amount":      map[string]any{"type": "number"},
			},
			"required": []string{"customer_id", "currency", "amount"},
		},
	}, func(context.Context, Invocation, budgetArgs) (string, error) {
		calls.Add(1)
		return "budget updated", nil
	})
}

func TestCurrencyGuard(t *testing.T) {
	history := []types.Message{{Name: "client", Role: types.RoleAgent, Content: "ok, set it to 50 EUR"}}
	args := `{"customer_id":"123","currency":"eur","amount":50,"client_approved_modification":true,"clients_approval_message":"set it to 50 EUR"}`

	t.Run("requires lookup", func(t *testing.T) {
		var calls atomic.Int32
		err := NewRegistry().Register(budgetTool(&calls))
		assert.ErrorIs(t, err, ErrInvalidRegistration)
	})

	t.Run("match", func(t *testing.T) {
		var calls atomic.Int32
		r := NewRegistry(WithCurrencyLookup(fakeLookup{currency: "EUR"}))
		require.NoError(t, r.Register(budgetTool(&calls)))

		msg := r.Dispatch(context.Background(), "executor", Invocation{Name: "set_budget", Args: args, History: history})
		assert.False(t, msg.Failed)
		assert.Equal(t, "budget updated", msg.Content)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("mismatch", func(t *testing.T) {
		var calls atomic.Int32
		r := NewRegistry(WithCurrencyLookup(fakeLookup{currency: "USD"}))
		require.NoError(t, r.Register(budgetTool(&calls)))

		_, err := r.Execute(context.Background(), Invocation{Name: "set_budget", Args: args, History: history})
		var mismatch *CurrencyMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "EUR", mismatch.Declared)
		assert.Equal(t, "USD", mismatch.Actual)
		assert.True(t, Recoverable(err))
		assert.Zero(t, calls.Load())

		msg := r.Dispatch(context.Background(), "executor", Invocation{Name: "set_budget", Args: args, History: history})
		assert.True(t, msg.Failed)
		assert.Contains(t, msg.Content, "EUR")
		assert.Contains(t, msg.Content, "USD")
	})

	t.Run("lookup failure", func(t *testing.T) {
		var calls atomic.Int32
		r := NewRegistry(WithCurrencyLookup(fakeLookup{err: errors.New("ads api down")}))
		require.NoError(t, r.Register(budgetTool(&calls)))

		msg := r.Dispatch(context.Background(), "executor", Invocation{Name: "set_budget", Args: args, History: history})
		assert.True(t, msg.Failed)
		assert.Contains(t, msg.Content, "ads api down")
		assert.Zero(t, calls.Load())
	})

	t.Run("refusal precedes currency check", func(t *testing.T) {
		var calls atomic.Int32
		r := NewRegistry(WithCurrencyLookup(fakeLookup{currency: "USD"}))
		require.NoError(t, r.Register(budgetTool(&calls)))

		msg := r.Dispatch(context.Background(), "executor", Invocation{
			Name: "set_budget",
			Args: `{"customer_id":"123","currency":"eur","amount":50,"client_approved_modification":false,"clients_approval_message":""}`,
		})
		assert.False(t, msg.Failed)
		assert.Equal(t, RefusalNotApproved, msg.Content)
	})
}
