package ads

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Account is the state of one customer in a Memory service.
type Account struct {
	Currency  string
	Campaigns []Row
}

// Mutation is one call recorded by a Memory service.
type Mutation struct {
	Endpoint string
	Resource any
	Approval Approval
}

// Memory is an in-process Service for dry runs. Queries return the
// account's campaign rows; mutations are only recorded.
type Memory struct {
	mu        sync.Mutex
	accounts  map[string]Account
	mutations []Mutation
}

func NewMemory(accounts map[string]Account) *Memory {
	if accounts == nil {
		accounts = map[string]Account{}
	}
	return &Memory{accounts: accounts}
}

func (m *Memory) account(customerID string) (Account, error) {
	acc, ok := m.accounts[customerID]
	if !ok {
		return Account{}, &ExternalServiceError{Op: "query", StatusCode: 404, Message: "customer " + customerID + " not found"}
	}
	return acc, nil
}

func (m *Memory) Mutate(_ context.Context, endpoint string, resource any, approval Approval) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mutations = append(m.mutations, Mutation{Endpoint: endpoint, Resource: resource, Approval: approval})
	if r, ok := resource.(map[string]any); ok {
		if name, ok := r["resource_name"].(string); ok {
			return name, nil
		}
	}
	return fmt.Sprintf("%s/%d", endpoint, len(m.mutations)), nil
}

func (m *Memory) Query(_ context.Context, customerID, query string) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, err := m.account(customerID)
	if err != nil {
		return nil, err
	}
	if strings.Contains(query, "customer.currency_code") {
		return []Row{{"customer.currency_code": acc.Currency}}, nil
	}
	return append([]Row(nil), acc.Campaigns...), nil
}

func (m *Memory) Currency(ctx context.Context, customerID string) (string, error) {
	rows, err := m.Query(ctx, customerID, currencyQuery)
	if err != nil {
		return "", err
	}
	return currencyFromRows(customerID, rows)
}

func (m *Memory) Mutations() []Mutation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Mutation(nil), m.mutations...)
}
