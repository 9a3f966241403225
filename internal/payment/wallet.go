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

// WalletClient talks to the wallet processor (create/capture/verify).
// The user-approval step happens entirely in the provider's widget and
// never touches this client.
type WalletClient struct {
	baseURL string
	client  httpDoer
	cb      *gobreaker.CircuitBreaker[[]byte]
}

func NewWalletClient(baseURL string, client *http.Client) *WalletClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &WalletClient{
		baseURL: baseURL,
		client:  client,
		cb:      newBreaker("wallet-provider"),
	}
}

type walletAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency_code"`
}

type createWalletOrderRequest struct {
	ReferenceID string       `json:"reference_id"`
	Amount      walletAmount `json:"amount"`
}

type walletOrderResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	UpdateTime string `json:"update_time"`
	Payer      struct {
		EmailAddress string `json:"email_address"`
	} `json:"payer"`
}

func (w *WalletClient) CreateOrder(ctx context.Context, order *domain.Order) (string, error) {
	req := createWalletOrderRequest{
		ReferenceID: order.ID.String(),
		Amount: walletAmount{
			Value:    fmt.Sprintf("%.2f", order.TotalPrice),
			Currency: order.Currency,
		},
	}

	raw, err := postJSON(ctx, w.client, w.cb, w.baseURL+"/v2/orders", req)
	if err != nil {
		return "", fmt.Errorf("create wallet order: %w", err)
	}

	var resp walletOrderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode wallet order response: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("wallet provider returned incomplete order: %s", raw)
	}

	return resp.ID, nil
}

func (w *WalletClient) Capture(ctx context.Context, providerOrderID string) (*domain.PaymentReceipt, error) {
	raw, err := postJSON(ctx, w.client, w.cb,
		w.baseURL+"/v2/orders/"+url.PathEscape(providerOrderID)+"/capture",
		struct{}{})
	if err != nil {
		return nil, fmt.Errorf("capture wallet order: %w", err)
	}

	var resp walletOrderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode wallet capture response: %w", err)
	}
	if resp.Status != "COMPLETED" {
		return nil, fmt.Errorf("%w: capture status %q", ErrCaptureDeclined, resp.Status)
	}

	return &domain.PaymentReceipt{
		ID:           resp.ID,
		Status:       resp.Status,
		UpdateTime:   resp.UpdateTime,
		EmailAddress: resp.Payer.EmailAddress,
	}, nil
}

func (w *WalletClient) VerifyOrder(ctx context.Context, providerOrderID string) (*domain.PaymentReceipt, bool, error) {
	raw, err := getJSON(ctx, w.client, w.cb,
		w.baseURL+"/v2/orders/"+url.PathEscape(providerOrderID))
	if err != nil {
		return nil, false, fmt.Errorf("verify wallet order: %w", err)
	}

	var resp walletOrderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false, fmt.Errorf("decode wallet order status: %w", err)
	}

	if resp.Status != "COMPLETED" {
		return nil, false, nil
	}

	return &domain.PaymentReceipt{
		ID:           resp.ID,
		Status:       resp.Status,
		UpdateTime:   resp.UpdateTime,
		EmailAddress: resp.Payer.EmailAddress,
	}, true, nil
}
