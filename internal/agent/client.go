package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// clientTimeout bounds one bridge API call; polls run every few seconds
// so a hung call must not stack up behind the ticker.
const clientTimeout = 30 * time.Second

// HeartbeatReport is the liveness report sent to the bridge
type HeartbeatReport struct {
	ConnectorVersion string
	EngineVersion    string
	EngineConnected  bool
	Companies        []string
}

// HeartbeatAck is the bridge's acknowledgement of a heartbeat
type HeartbeatAck struct {
	ConnectorID  uuid.UUID `json:"connector_id"`
	Status       string    `json:"status"`
	PendingCount int64     `json:"pending_count"`
}

// Operation is one claimed unit of work handed to the agent
type Operation struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	Priority   int       `json:"priority"`
	RequestXML string    `json:"request_xml"`
	CreatedAt  time.Time `json:"created_at"`
}

// OperationResult reports the outcome of one executed operation
type OperationResult struct {
	OperationID uuid.UUID
	Success     bool
	ResponseXML string
	Error       string
	EngineGUID  string
	DurationMS  int64
}

// BridgeAPI is the cloud bridge as the poller sees it
type BridgeAPI interface {
	Heartbeat(ctx context.Context, report HeartbeatReport) (*HeartbeatAck, error)
	FetchPending(ctx context.Context, limit int) ([]Operation, error)
	ReportResult(ctx context.Context, result OperationResult) error
}

// BridgeClient is the JSON HTTP client for the bridge's agent endpoints.
// The API key is carried in every request body.
type BridgeClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewBridgeClient creates a client for the given bridge endpoint
func NewBridgeClient(baseURL, apiKey string, logger *zap.Logger) *BridgeClient {
	return &BridgeClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: clientTimeout},
		logger:     logger,
	}
}

// envelope is the bridge's uniform response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *envelopeError  `json:"error"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Heartbeat reports liveness and engine reachability
func (c *BridgeClient) Heartbeat(ctx context.Context, report HeartbeatReport) (*HeartbeatAck, error) {
	body := map[string]any{
		"api_key":           c.apiKey,
		"connector_version": report.ConnectorVersion,
		"engine_version":    report.EngineVersion,
		"engine_connected":  report.EngineConnected,
		"companies":         report.Companies,
	}

	var ack HeartbeatAck
	if err := c.post(ctx, "/api/v1/agent/heartbeat", body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// FetchPending claims the next batch of queued operations
func (c *BridgeClient) FetchPending(ctx context.Context, limit int) ([]Operation, error) {
	body := map[string]any{
		"api_key": c.apiKey,
		"limit":   limit,
	}

	var data struct {
		Operations []Operation `json:"operations"`
		Count      int         `json:"count"`
	}
	if err := c.post(ctx, "/api/v1/agent/operations/pending", body, &data); err != nil {
		return nil, err
	}
	return data.Operations, nil
}

// ReportResult records the outcome of one claimed operation
func (c *BridgeClient) ReportResult(ctx context.Context, result OperationResult) error {
	body := map[string]any{
		"api_key":      c.apiKey,
		"operation_id": result.OperationID.String(),
		"success":      result.Success,
		"response_xml": result.ResponseXML,
		"error":        result.Error,
		"engine_guid":  result.EngineGUID,
		"duration_ms":  result.DurationMS,
	}
	return c.post(ctx, "/api/v1/agent/operations/result", body, nil)
}

func (c *BridgeClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bridge request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read bridge response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("unexpected bridge response (status %d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		if env.Error != nil {
			return fmt.Errorf("bridge rejected request: %s (%s)", env.Error.Message, env.Error.Code)
		}
		return fmt.Errorf("bridge rejected request with status %d", resp.StatusCode)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode bridge response: %w", err)
		}
	}
	return nil
}
