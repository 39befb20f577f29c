// Package gateway talks to the Mercado Pago REST API: checkout preference
// creation at order time and authoritative payment-detail lookups during
// webhook reconciliation.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/molinerisit/carnesdelmercadoecommerce-backend/internal/model"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://api.mercadopago.com"

// Config holds the gateway credentials and redirect targets.
type Config struct {
	AccessToken     string
	BaseURL         string
	IntegratorID    string
	Timeout         time.Duration
	FrontendOrigin  string
	NotificationURL string
}

// Client is an HTTP client for the Mercado Pago API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a gateway client with a bounded request timeout.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With().Str("component", "gateway").Logger(),
	}
}

// PreferenceItem is one priced line sent to the gateway. UnitPrice is in
// currency units; the conversion from cents happens at this boundary only.
type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

// CreatePreferenceInput describes the checkout session to create.
// ExternalReference is the local order ID, echoed back in payment details.
type CreatePreferenceInput struct {
	PayerEmail        string
	Items             []PreferenceItem
	ExternalReference string
}

// Preference is the gateway-side checkout session. InitURL is the hosted
// payment page the customer is redirected to.
type Preference struct {
	ID      string
	InitURL string
}

// PaymentDetail is the authoritative state of one payment.
type PaymentDetail struct {
	Status            string
	ExternalReference string
}

type backURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type preferenceRequest struct {
	Payer struct {
		Email string `json:"email"`
	} `json:"payer"`
	Items               []PreferenceItem `json:"items"`
	BackURLs            backURLs         `json:"back_urls"`
	AutoReturn          string           `json:"auto_return"`
	StatementDescriptor string           `json:"statement_descriptor"`
	ExternalReference   string           `json:"external_reference"`
	NotificationURL     string           `json:"notification_url,omitempty"`
}

type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type paymentResponse struct {
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
}

// CreatePreference creates a checkout preference and returns its hosted
// payment URL. Failures wrap model.ErrPaymentGateway.
func (c *Client) CreatePreference(ctx context.Context, in CreatePreferenceInput) (*Preference, error) {
	if c.cfg.AccessToken == "" {
		return nil, fmt.Errorf("%w: access token not configured", model.ErrPaymentGateway)
	}

	req := preferenceRequest{
		Items: in.Items,
		BackURLs: backURLs{
			Success: c.cfg.FrontendOrigin + "/success",
			Failure: c.cfg.FrontendOrigin + "/failure",
			Pending: c.cfg.FrontendOrigin + "/pending",
		},
		AutoReturn:          "approved",
		StatementDescriptor: "Carnes del Mercado",
		ExternalReference:   in.ExternalReference,
		NotificationURL:     c.cfg.NotificationURL,
	}
	req.Payer.Email = in.PayerEmail

	var resp preferenceResponse
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", req, &resp); err != nil {
		return nil, err
	}

	initURL := resp.InitPoint
	if initURL == "" {
		// Test-account credentials only populate the sandbox URL.
		initURL = resp.SandboxInitPoint
	}

	c.logger.Info().
		Str("preference_id", resp.ID).
		Str("external_reference", in.ExternalReference).
		Msg("checkout preference created")

	return &Preference{ID: resp.ID, InitURL: initURL}, nil
}

// GetPaymentDetail fetches the authoritative status of a payment. The
// webhook body is untrusted; reconciliation decides on this data only.
func (c *Client) GetPaymentDetail(ctx context.Context, paymentID string) (*PaymentDetail, error) {
	if c.cfg.AccessToken == "" {
		return nil, fmt.Errorf("%w: access token not configured", model.ErrPaymentGateway)
	}

	var resp paymentResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &resp); err != nil {
		return nil, err
	}

	return &PaymentDetail{
		Status:            resp.Status,
		ExternalReference: resp.ExternalReference,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode gateway request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.IntegratorID != "" {
		req.Header.Set("x-integrator-id", c.cfg.IntegratorID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrPaymentGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("path", path).
			Str("detail", string(detail)).
			Msg("gateway request rejected")
		return fmt.Errorf("%w: status %d", model.ErrPaymentGateway, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: invalid response body: %v", model.ErrPaymentGateway, err)
	}
	return nil
}
