package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Eymeric05/E-Perfume-sub000/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// CardClient talks to the hosted-checkout card processor over REST.
type CardClient struct {
	baseURL    string
	successURL string
	cancelURL  string
	client     httpDoer
	cb         *gobreaker.CircuitBreaker[[]byte]
}

func NewCardClient(baseURL, successURL, cancelURL string, client *http.Client) *CardClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &CardClient{
		baseURL:    baseURL,
		successURL: successURL,
		cancelURL:  cancelURL,
		client:     client,
		cb:         newBreaker("card-provider"),
	}
}

type cardLineItem struct {
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int    `json:"quantity"`
}

type createSessionRequest struct {
	OrderID    string         `json:"order_id"`
	Amount     int64          `json:"amount"`
	Currency   string         `json:"currency"`
	LineItems  []cardLineItem `json:"line_items"`
	SuccessURL string         `json:"success_url"`
	CancelURL  string         `json:"cancel_url"`
}

type createSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// cents converts a price to the provider's minor units.
func cents(price float64) int64 {
	return int64(price*100 + 0.5)
}

func (c *CardClient) CreateSession(ctx context.Context, order *domain.Order) (*CardSession, error) {
	items := make([]cardLineItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, cardLineItem{
			Name:       item.Name,
			UnitAmount: cents(item.UnitPrice),
			Quantity:   item.Quantity,
		})
	}

	// The provider substitutes the session id into the return URL so the
	// redirect back carries it as a query parameter.
	req := createSessionRequest{
		OrderID:    order.ID.String(),
		Amount:     cents(order.TotalPrice),
		Currency:   order.Currency,
		LineItems:  items,
		SuccessURL: fmt.Sprintf("%s/order/%s?success=true&session_id={CHECKOUT_SESSION_ID}", c.successURL, order.ID),
		CancelURL:  fmt.Sprintf("%s/order/%s", c.cancelURL, order.ID),
	}

	raw, err := postJSON(ctx, c.client, c.cb, c.baseURL+"/v1/checkout/sessions", req)
	if err != nil {
		return nil, fmt.Errorf("create card session: %w", err)
	}

	var resp createSessionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode card session response: %w", err)
	}
	if resp.ID == "" || resp.URL == "" {
		return nil, fmt.Errorf("card provider returned incomplete session: %s", raw)
	}

	return &CardSession{SessionID: resp.ID, URL: resp.URL}, nil
}

type cardSessionStatus struct {
	ID            string `json:"id"`
	PaymentStatus string `json:"payment_status"`
	UpdateTime    string `json:"update_time"`
	CustomerEmail string `json:"customer_email"`
}

func (c *CardClient) VerifySession(ctx context.Context, sessionID string) (*domain.PaymentReceipt, bool, error) {
	raw, err := getJSON(ctx, c.client, c.cb,
		c.baseURL+"/v1/checkout/sessions/"+url.PathEscape(sessionID))
	if err != nil {
		return nil, false, fmt.Errorf("verify card session: %w", err)
	}

	var status cardSessionStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, false, fmt.Errorf("decode card session status: %w", err)
	}

	if status.PaymentStatus != "paid" {
		return nil, false, nil
	}

	return &domain.PaymentReceipt{
		ID:           status.ID,
		Status:       status.PaymentStatus,
		UpdateTime:   status.UpdateTime,
		EmailAddress: status.CustomerEmail,
	}, true, nil
}
