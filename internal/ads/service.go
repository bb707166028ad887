// Package ads talks to the Ads Resource Service and exposes its operations
// as dispatch tools.
package ads

import (
	"context"
	"fmt"
)

// Approval carries the client's consent alongside a mutation, so the
// service can audit who approved what.
type Approval struct {
	Approved bool   `json:"client_approved_modification"`
	Message  string `json:"clients_approval_message"`
}

// Row is one result row of a query, keyed by dotted field name such as
// "campaign.id".
type Row map[string]any

type Service interface {
	// Mutate applies resource at endpoint and returns the resource name.
	Mutate(ctx context.Context, endpoint string, resource any, approval Approval) (string, error)
	Query(ctx context.Context, customerID, query string) ([]Row, error)
	// Currency resolves the account currency through a read-only query.
	Currency(ctx context.Context, customerID string) (string, error)
}

// ExternalServiceError is a transport or API failure of the ads backend.
type ExternalServiceError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ExternalServiceError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("ads %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("ads %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ads %s: %s", e.Op, e.Message)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

const currencyQuery = "SELECT customer.currency_code FROM customer"

func currencyFromRows(customerID string, rows []Row) (string, error) {
	if len(rows) == 0 {
		return "", &ExternalServiceError{Op: "currency", Message: "no customer row for " + customerID}
	}
	code, _ := rows[0]["customer.currency_code"].(string)
	if code == "" {
		return "", &ExternalServiceError{Op: "currency", Message: "customer " + customerID + " has no currency_code"}
	}
	return code, nil
}
