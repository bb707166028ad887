package ads

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jeanpaul/adcrew/internal/tools"
)

// Toolset returns the account tools backed by svc.
func Toolset(svc Service) []tools.Tool {
	return []tools.Tool{
		listCampaigns(svc),
		executeQuery(svc),
		updateCampaignStatus(svc),
		updateCampaignBudget(svc),
	}
}

var customerIDProp = map[string]any{
	"type":        "string",
	"pattern":     "^[0-9]+$",
	"description": "Ads customer id, digits only without dashes.",
}

type listCampaignsArgs struct {
	CustomerID string `json:"customer_id"`
	Status     string `json:"status"`
}

func listCampaigns(svc Service) tools.Tool {
	return tools.NewCommand(tools.Spec{
		Name:        "list_campaigns",
		Description: "List the campaigns of a customer with their status and daily budget.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"customer_id": customerIDProp,
				"status": map[string]any{
					"type": "string",
					"enum": []string{"ENABLED", "PAUSED", "REMOVED"},
				},
			},
			"required": []string{"customer_id"},
		},
	}, func(ctx context.Context, _ tools.Invocation, a listCampaignsArgs) (string, error) {
		q := "SELECT campaign.id, campaign.name, campaign.status, campaign_budget.id, campaign_budget.amount_micros FROM campaign"
		if a.Status != "" {
			q += fmt.Sprintf(" WHERE campaign.status = '%s'", a.Status)
		}
		rows, err := svc.Query(ctx, a.CustomerID, q)
		if err != nil {
			return "", err
		}
		return renderRows(rows)
	})
}

type executeQueryArgs struct {
	CustomerID string `json:"customer_id"`
	Query      string `json:"query"`
}

func executeQuery(svc Service) tools.Tool {
	return tools.NewCommand(tools.Spec{
		Name:        "execute_query",
		Description: "Run a read-only SELECT query against the customer's account and return the rows as JSON.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"customer_id": customerIDProp,
				"query":       map[string]any{"type": "string"},
			},
			"required": []string{"customer_id", "query"},
		},
	}, func(ctx context.Context, _ tools.Invocation, a executeQueryArgs) (string, error) {
		if !strings.EqualFold(firstWord(a.Query), "SELECT") {
			return "", fmt.Errorf("only SELECT queries are allowed")
		}
		rows, err := svc.Query(ctx, a.CustomerID, a.Query)
		if err != nil {
			return "", err
		}
		return renderRows(rows)
	})
}

type updateStatusArgs struct {
	CustomerID string `json:"customer_id"`
	CampaignID string `json:"campaign_id"`
	Status     string `json:"status"`
	Approval
}

func updateCampaignStatus(svc Service) tools.Tool {
	return tools.NewCommand(tools.Spec{
		Name:        "update_campaign_status",
		Description: "Enable or pause a campaign. Requires the client's explicit approval.",
		SideEffect:  tools.MutatingGated,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"customer_id": customerIDProp,
				"campaign_id": map[string]any{"type": "string"},
				"status": map[string]any{
					"type": "string",
					"enum": []string{"ENABLED", "PAUSED"},
				},
			},
			"required": []string{"customer_id", "campaign_id", "status"},
		},
	}, func(ctx context.Context, _ tools.Invocation, a updateStatusArgs) (string, error) {
		resourceName := fmt.Sprintf("customers/%s/campaigns/%s", a.CustomerID, a.CampaignID)
		name, err := svc.Mutate(ctx, "customers/"+a.CustomerID+"/campaigns", map[string]any{
			"resource_name": resourceName,
			"status":        a.Status,
		}, a.Approval)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Campaign %s is now %s.", name, a.Status), nil
	})
}

type updateBudgetArgs struct {
	CustomerID string          `json:"customer_id"`
	BudgetID   string          `json:"budget_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Approval
}

func updateCampaignBudget(svc Service) tools.Tool {
	return tools.NewCommand(tools.Spec{
		Name:        "update_campaign_budget",
		Description: "Set the daily amount of a campaign budget, in currency units of the account. Requires the client's explicit approval.",
		SideEffect:  tools.MutatingGated,
		Currency:    &tools.CurrencyFields{CustomerID: "customer_id", Currency: "currency"},
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"customer_id": customerIDProp,
				"budget_id":   map[string]any{"type": "string"},
				"amount": map[string]any{
					"type":        "number",
					"minimum":     0,
					"maximum":     MaxBudgetAmount,
					"description": "Daily amount in currency units, e.g. 12.5",
				},
				"currency": map[string]any{
					"type":        "string",
					"description": "ISO 4217 code the amount is expressed in.",
				},
			},
			"required": []string{"customer_id", "budget_id", "amount", "currency"},
		},
	}, func(ctx context.Context, _ tools.Invocation, a updateBudgetArgs) (string, error) {
		if !a.Amount.IsPositive() {
			return "", fmt.Errorf("amount must be positive, got %s", a.Amount)
		}
		micros, err := ToMicros(a.Amount)
		if err != nil {
			return "", err
		}
		name, err := svc.Mutate(ctx, "customers/"+a.CustomerID+"/campaignBudgets", map[string]any{
			"resource_name": fmt.Sprintf("customers/%s/campaignBudgets/%s", a.CustomerID, a.BudgetID),
			"amount_micros": micros,
		}, a.Approval)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Budget %s set to %s (%d micros).", name, FormatMicros(micros, strings.ToUpper(a.Currency)), micros), nil
	})
}

func renderRows(rows []Row) (string, error) {
	if len(rows) == 0 {
		return "No rows.", nil
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func firstWord(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}
