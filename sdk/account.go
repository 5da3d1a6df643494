package voxa

import (
	"context"
	"net/http"
)

// AccountService exposes account-level lookups.
type AccountService struct {
	client *Client
}

// CreditBalance is the remaining prepaid credit for the account.
type CreditBalance struct {
	RemainingCredits float64 `json:"remaining_credits"`
	Currency         string  `json:"currency,omitempty"`
}

// CreditBalance fetches the current balance.
func (s *AccountService) CreditBalance(ctx context.Context) (*CreditBalance, error) {
	var out CreditBalance
	if err := s.client.doJSON(ctx, http.MethodGet, "/v1/account/balance", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
