package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/0xHustling/LP-Betting-Pools/config"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TreasuryProvider implements providers.Treasury against the treasury
// service's HTTP API. A non-2xx response or transport error is surfaced to
// the caller, which must treat it as fatal to the enclosing operation.
type TreasuryProvider struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewTreasuryProvider creates a treasury provider from configuration
func NewTreasuryProvider(cfg *config.Config, logger zerolog.Logger) *TreasuryProvider {
	timeout := cfg.ExternalServices.TreasuryService.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &TreasuryProvider{
		baseURL: cfg.ExternalServices.TreasuryService.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				MaxConnsPerHost:     100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.With().Str("component", "treasury_provider").Logger(),
	}
}

// Debit pulls funds from an account into pooled custody
func (p *TreasuryProvider) Debit(ctx context.Context, account string, amount decimal.Decimal) error {
	return p.post(ctx, "/treasury/debit", account, amount)
}

// Credit pays funds out of pooled custody to an account
func (p *TreasuryProvider) Credit(ctx context.Context, account string, amount decimal.Decimal) error {
	return p.post(ctx, "/treasury/credit", account, amount)
}

func (p *TreasuryProvider) post(ctx context.Context, path, account string, amount decimal.Decimal) error {
	url := p.baseURL + path

	body, _ := json.Marshal(map[string]interface{}{
		"account": account,
		// Decimal serialized as string so the treasury never sees a float
		"amount": amount.String(),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("treasury call failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn().
			Str("path", path).
			Str("account", account).
			Int("status", resp.StatusCode).
			Msg("Treasury rejected transfer")
		return fmt.Errorf("treasury returned status %d", resp.StatusCode)
	}

	return nil
}
