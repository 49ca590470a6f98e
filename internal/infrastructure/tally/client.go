package tally

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/accountsync/backend/internal/domain/bridge"
	"go.uber.org/zap"
)

// Default timeouts for engine calls
const (
	StatusTimeout = 5 * time.Second
	DirectTimeout = 3 * time.Second
	ImportTimeout = 60 * time.Second
)

// Client talks HTTP to a single accounting-engine endpoint. All requests
// are plain POSTs of an XML body to the engine root URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an engine client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Send posts an XML payload and returns the raw response body. Transport
// failures are surfaced as the engine-unavailable domain error.
func (c *Client) Send(ctx context.Context, xmlBody string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBufferString(xmlBody))
	if err != nil {
		return "", fmt.Errorf("failed to build engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Engine request failed",
			zap.String("url", c.baseURL),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return "", bridge.ErrEngineUnavailable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read engine response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return string(body), fmt.Errorf("engine returned HTTP %d", resp.StatusCode)
	}

	c.logger.Debug("Engine request completed",
		zap.String("url", c.baseURL),
		zap.Duration("duration", time.Since(start)),
		zap.Int("response_bytes", len(body)))
	return string(body), nil
}

// Ping checks whether the engine is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Send(ctx, EncodeStatusRequest())
	return err
}

// ListCompanies returns the names of companies loaded in the engine.
func (c *Client) ListCompanies(ctx context.Context) ([]string, error) {
	raw, err := c.Send(ctx, EncodeListCompaniesRequest())
	if err != nil {
		return nil, err
	}
	entries, err := ParseCollection(raw, "COMPANY")
	if err != nil {
		return nil, fmt.Errorf("failed to parse company list: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names, nil
}

// ListLedgers returns the ledgers of a company with parents and balances.
func (c *Client) ListLedgers(ctx context.Context, company string) ([]CollectionEntry, error) {
	raw, err := c.Send(ctx, EncodeListLedgersRequest(company))
	if err != nil {
		return nil, err
	}
	entries, err := ParseCollection(raw, "LEDGER")
	if err != nil {
		return nil, fmt.Errorf("failed to parse ledger list: %w", err)
	}
	return entries, nil
}

// ListVoucherTypes returns the voucher types configured in a company.
func (c *Client) ListVoucherTypes(ctx context.Context, company string) ([]CollectionEntry, error) {
	raw, err := c.Send(ctx, EncodeListVoucherTypesRequest(company))
	if err != nil {
		return nil, err
	}
	entries, err := ParseCollection(raw, "VOUCHERTYPE")
	if err != nil {
		return nil, fmt.Errorf("failed to parse voucher type list: %w", err)
	}
	return entries, nil
}

// ImportVoucher sends a pre-encoded voucher envelope and classifies the
// engine's answer. Transport errors are returned as errors; a reachable
// engine always yields a classified outcome.
func (c *Client) ImportVoucher(ctx context.Context, envelope string) (Outcome, error) {
	raw, err := c.Send(ctx, envelope)
	if err != nil {
		return Outcome{}, err
	}
	return DecodeImportResponse(raw), nil
}
