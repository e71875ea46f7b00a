package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/letrinh/letrinh-backend/pkg/config"
	"github.com/letrinh/letrinh-backend/pkg/telemetry"
)

const (
	templatePath        = "/notification/template"
	confirmationTitle   = "LeTrinh - Xác nhận đơn hàng"
	orderCodeTemplate   = "Mã đơn hàng: %s"
	maxErrorBodyPreview = 512
)

// ZaloClient sends mini-app template notifications.
type ZaloClient struct {
	http *http.Client
	cfg  config.ZaloConfig
}

// NewZaloClient builds a client for the configured mini app. The transport is
// traced so outbound calls join the consumer span.
func NewZaloClient(cfg config.ZaloConfig, httpClient *http.Client) (*ZaloClient, error) {
	if !cfg.Enabled() {
		return nil, errors.New("zalo api key and mini app id are required")
	}
	if strings.TrimSpace(cfg.TemplateID) == "" {
		return nil, errors.New("zalo template id is required")
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = telemetry.HTTPClient(&http.Client{Timeout: timeout})
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &ZaloClient{http: httpClient, cfg: cfg}, nil
}

type templateRequest struct {
	TemplateID   string       `json:"templateId"`
	TemplateData templateData `json:"templateData"`
}

type templateData struct {
	ButtonText         string `json:"buttonText"`
	ButtonURL          string `json:"buttonUrl"`
	Title              string `json:"title"`
	ContentTitle       string `json:"contentTitle"`
	ContentDescription string `json:"contentDescription"`
}

// SendOrderConfirmation notifies the customer that their order was placed.
func (c *ZaloClient) SendOrderConfirmation(ctx context.Context, customerID, orderID string) error {
	if customerID == "" || orderID == "" {
		return errors.New("customer id and order id are required")
	}
	body, err := json.Marshal(templateRequest{
		TemplateID: c.cfg.TemplateID,
		TemplateData: templateData{
			ButtonText:         c.cfg.ButtonText,
			ButtonURL:          c.cfg.ButtonURL,
			Title:              confirmationTitle,
			ContentTitle:       c.cfg.ContentTitle,
			ContentDescription: fmt.Sprintf(orderCodeTemplate, orderID),
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+templatePath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", apiKeyHeader(c.cfg.APIKey))
	req.Header.Set("X-User-Id", customerID)
	req.Header.Set("X-MiniApp-Id", c.cfg.MiniAppID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("zalo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyPreview))
		return fmt.Errorf("zalo responded %d: %s", resp.StatusCode, strings.TrimSpace(string(preview)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func apiKeyHeader(key string) string {
	key = strings.TrimSpace(key)
	if strings.HasPrefix(key, "Bearer ") {
		return key
	}
	return "Bearer " + key
}
