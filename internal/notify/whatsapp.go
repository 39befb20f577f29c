package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultGraphBaseURL = "https://graph.facebook.com/v19.0"

	// The Cloud API rejects text bodies longer than 4096 characters.
	maxMessageLength = 4000
)

// WhatsAppNotifier sends messages through the WhatsApp Cloud API.
type WhatsAppNotifier struct {
	cfg        WhatsAppConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewWhatsApp creates a WhatsApp Cloud API sink.
func NewWhatsApp(cfg WhatsAppConfig, logger zerolog.Logger) *WhatsAppNotifier {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGraphBaseURL
	}
	return &WhatsAppNotifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "whatsapp").Logger(),
	}
}

type textMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

// Send delivers a text message to the configured recipient.
func (n *WhatsAppNotifier) Send(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if len(text) > maxMessageLength {
		text = text[:maxMessageLength]
	}

	to := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, n.cfg.To)

	msg := textMessage{
		MessagingProduct: "whatsapp",
		To:               "+" + to,
		Type:             "text",
	}
	msg.Text.Body = text

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode whatsapp message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", n.cfg.BaseURL, n.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build whatsapp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		n.logger.Warn().
			Int("status", resp.StatusCode).
			Str("detail", string(detail)).
			Msg("whatsapp message rejected")
		return fmt.Errorf("whatsapp message rejected with status %d", resp.StatusCode)
	}

	n.logger.Debug().Msg("whatsapp message sent")
	return nil
}
