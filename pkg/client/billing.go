package client

import (
	"context"
	"net/http"
)

// BillingService calls the billing endpoints
type BillingService struct {
	client *Client
}

const billingPath = "/api/v1/billing"

// Entitlement returns the caller's plan and billing state
func (s *BillingService) Entitlement(ctx context.Context) (*Entitlement, error) {
	var ent Entitlement
	if err := s.client.doRequest(ctx, http.MethodGet, billingPath+"/entitlement", nil, &ent); err != nil {
		return nil, err
	}
	return &ent, nil
}

// Checkout starts a subscription checkout and returns the hosted page URL.
// interval is "month" or "year"; empty means month.
func (s *BillingService) Checkout(ctx context.Context, interval string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	body := map[string]string{}
	if interval != "" {
		body["interval"] = interval
	}
	if err := s.client.doRequest(ctx, http.MethodPost, billingPath+"/checkout", body, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// StartOneTime starts a pay-what-you-want payment of amountCents
func (s *BillingService) StartOneTime(ctx context.Context, amountCents int64) (*OneTimeIntent, error) {
	var resp OneTimeIntent
	body := map[string]int64{"amountCents": amountCents}
	if err := s.client.doRequest(ctx, http.MethodPost, billingPath+"/pwyw-intent", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompleteOneTime records a payment the client already confirmed with the gateway
func (s *BillingService) CompleteOneTime(ctx context.Context, amountCents int64) error {
	body := map[string]int64{"amountCents": amountCents}
	return s.client.doRequest(ctx, http.MethodPost, billingPath+"/pwyw-complete", body, nil)
}

// Portal returns a billing portal URL
func (s *BillingService) Portal(ctx context.Context, returnURL string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	body := map[string]string{}
	if returnURL != "" {
		body["returnUrl"] = returnURL
	}
	if err := s.client.doRequest(ctx, http.MethodPost, billingPath+"/portal", body, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// SubscriptionStatus returns the subscription as the payment gateway reports it
func (s *BillingService) SubscriptionStatus(ctx context.Context) (*SubscriptionStatus, error) {
	var status SubscriptionStatus
	if err := s.client.doRequest(ctx, http.MethodGet, billingPath+"/subscription-status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
