package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	bridgeapp "github.com/accountsync/backend/internal/application/bridge"
	"github.com/accountsync/backend/internal/domain/bridge"
	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/accountsync/backend/internal/infrastructure/config"
	"github.com/accountsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock implementations for bridge repositories

type mockConnectorRepository struct {
	connectors map[uuid.UUID]*bridge.Connector
}

func newMockConnectorRepository() *mockConnectorRepository {
	return &mockConnectorRepository{connectors: make(map[uuid.UUID]*bridge.Connector)}
}

func (m *mockConnectorRepository) FindByID(ctx context.Context, id uuid.UUID) (*bridge.Connector, error) {
	if c, ok := m.connectors[id]; ok {
		return c, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockConnectorRepository) FindByAPIKey(ctx context.Context, apiKey string) (*bridge.Connector, error) {
	for _, c := range m.connectors {
		if c.APIKey == apiKey {
			return c, nil
		}
	}
	return nil, bridge.ErrInvalidAPIKey
}

func (m *mockConnectorRepository) FindActiveForTenant(ctx context.Context, tenantID uuid.UUID) (*bridge.Connector, error) {
	for _, c := range m.connectors {
		if c.TenantID == tenantID && c.Status == bridge.ConnectorStatusActive {
			return c, nil
		}
	}
	return nil, bridge.ErrNoActiveConnector
}

func (m *mockConnectorRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]bridge.Connector, error) {
	var result []bridge.Connector
	for _, c := range m.connectors {
		if c.TenantID == tenantID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockConnectorRepository) FindSilentSince(ctx context.Context, cutoff time.Time, statuses ...bridge.ConnectorStatus) ([]bridge.Connector, error) {
	return nil, nil
}

func (m *mockConnectorRepository) Save(ctx context.Context, connector *bridge.Connector) error {
	m.connectors[connector.ID] = connector
	return nil
}

func (m *mockConnectorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.connectors, id)
	return nil
}

type mockOperationRepository struct {
	operations map[uuid.UUID]*bridge.Operation
}

func newMockOperationRepository() *mockOperationRepository {
	return &mockOperationRepository{operations: make(map[uuid.UUID]*bridge.Operation)}
}

func (m *mockOperationRepository) FindByID(ctx context.Context, id uuid.UUID) (*bridge.Operation, error) {
	if op, ok := m.operations[id]; ok {
		return op, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockOperationRepository) ClaimPending(ctx context.Context, connectorID uuid.UUID, limit int) ([]bridge.Operation, error) {
	var pending []*bridge.Operation
	for _, op := range m.operations {
		if op.ConnectorID == connectorID && op.Status == bridge.OperationStatusPending {
			pending = append(pending, op)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority > pending[j].Priority
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	claimed := make([]bridge.Operation, 0, len(pending))
	now := time.Now()
	for _, op := range pending {
		if err := op.Start(now); err != nil {
			return nil, err
		}
		claimed = append(claimed, *op)
	}
	return claimed, nil
}

func (m *mockOperationRepository) Save(ctx context.Context, op *bridge.Operation) error {
	m.operations[op.ID] = op
	return nil
}

func (m *mockOperationRepository) FindStale(ctx context.Context, cutoff time.Time) ([]bridge.Operation, error) {
	return nil, nil
}

func (m *mockOperationRepository) FindAllForConnector(ctx context.Context, connectorID uuid.UUID, status bridge.OperationStatus, limit int) ([]bridge.Operation, error) {
	var result []bridge.Operation
	for _, op := range m.operations {
		if op.ConnectorID == connectorID && (status == "" || op.Status == status) {
			result = append(result, *op)
		}
	}
	return result, nil
}

func (m *mockOperationRepository) CountByStatus(ctx context.Context, connectorID uuid.UUID, status bridge.OperationStatus) (int64, error) {
	var n int64
	for _, op := range m.operations {
		if op.ConnectorID == connectorID && op.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *mockOperationRepository) ExistsActiveForVoucher(ctx context.Context, voucherID uuid.UUID) (bool, error) {
	for _, op := range m.operations {
		if op.VoucherID != nil && *op.VoucherID == voucherID && !op.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockOperationRepository) FindTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]bridge.Operation, error) {
	return nil, nil
}

func (m *mockOperationRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		delete(m.operations, id)
	}
	return nil
}

type gatewayFixture struct {
	engine        *gin.Engine
	connectorRepo *mockConnectorRepository
	operationRepo *mockOperationRepository
	connector     *bridge.Connector
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	connectorRepo := newMockConnectorRepository()
	operationRepo := newMockOperationRepository()

	connector, err := bridge.NewConnector(uuid.New(), "Head Office", "DESKTOP-01", "localhost", 9000)
	require.NoError(t, err)
	require.NoError(t, connectorRepo.Save(context.Background(), connector))

	cfg := config.BridgeConfig{
		HeartbeatTimeout:      10 * time.Minute,
		StaleOperationTimeout: 10 * time.Minute,
	}
	connectorService := bridgeapp.NewConnectorService(connectorRepo, operationRepo, nil, cfg, zap.NewNop())
	queueService := bridgeapp.NewQueueService(operationRepo, connectorRepo, nil, cfg, zap.NewNop())

	h := NewGatewayHandler(connectorService, queueService)
	engine := gin.New()
	engine.POST("/agent/heartbeat", h.Heartbeat)
	engine.POST("/agent/operations/pending", h.PendingOperations)
	engine.POST("/agent/operations/result", h.ReportResult)

	return &gatewayFixture{
		engine:        engine,
		connectorRepo: connectorRepo,
		operationRepo: operationRepo,
		connector:     connector,
	}
}

func (f *gatewayFixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *gatewayFixture) enqueue(t *testing.T, priority int) *bridge.Operation {
	t.Helper()
	op := bridge.NewOperation(f.connector.ID, f.connector.TenantID,
		bridge.OperationTypeCreateVoucher, priority, "<ENVELOPE></ENVELOPE>", "")
	require.NoError(t, f.operationRepo.Save(context.Background(), op))
	return op
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	return data
}

func TestGatewayHeartbeat(t *testing.T) {
	t.Run("activates connector and reports pending count", func(t *testing.T) {
		f := newGatewayFixture(t)
		f.enqueue(t, bridge.PriorityNormal)
		f.enqueue(t, bridge.PriorityUrgent)

		w := f.post(t, "/agent/heartbeat", gin.H{
			"api_key":           f.connector.APIKey,
			"connector_version": "1.4.2",
			"engine_connected":  true,
		})

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, "active", data["status"])
		assert.Equal(t, float64(2), data["pending_count"])
		assert.Equal(t, bridge.ConnectorStatusActive, f.connector.Status)
		assert.Equal(t, "1.4.2", f.connector.ConnectorVersion)
	})

	t.Run("rejects unknown api key", func(t *testing.T) {
		f := newGatewayFixture(t)

		w := f.post(t, "/agent/heartbeat", gin.H{"api_key": "bogus"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeBridgeAuth, resp.Error.Code)
	})

	t.Run("rejects missing api key", func(t *testing.T) {
		f := newGatewayFixture(t)

		w := f.post(t, "/agent/heartbeat", gin.H{"connector_version": "1.0.0"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGatewayPendingOperations(t *testing.T) {
	t.Run("claims most urgent first", func(t *testing.T) {
		f := newGatewayFixture(t)
		normal := f.enqueue(t, bridge.PriorityNormal)
		urgent := f.enqueue(t, bridge.PriorityUrgent)

		w := f.post(t, "/agent/operations/pending", gin.H{
			"api_key": f.connector.APIKey,
			"limit":   1,
		})

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, float64(1), data["count"])
		ops := data["operations"].([]any)
		first := ops[0].(map[string]any)
		assert.Equal(t, urgent.ID.String(), first["id"])

		assert.Equal(t, bridge.OperationStatusInProgress, f.operationRepo.operations[urgent.ID].Status)
		assert.Equal(t, bridge.OperationStatusPending, f.operationRepo.operations[normal.ID].Status)
	})

	t.Run("empty queue yields empty batch", func(t *testing.T) {
		f := newGatewayFixture(t)

		w := f.post(t, "/agent/operations/pending", gin.H{"api_key": f.connector.APIKey})

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, float64(0), data["count"])
	})

	t.Run("rejects unknown api key", func(t *testing.T) {
		f := newGatewayFixture(t)

		w := f.post(t, "/agent/operations/pending", gin.H{"api_key": "bogus"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGatewayReportResult(t *testing.T) {
	claim := func(t *testing.T, f *gatewayFixture) *bridge.Operation {
		t.Helper()
		op := f.enqueue(t, bridge.PriorityNormal)
		claimed, err := f.operationRepo.ClaimPending(context.Background(), f.connector.ID, 1)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		return op
	}

	t.Run("records a successful result", func(t *testing.T) {
		f := newGatewayFixture(t)
		op := claim(t, f)

		w := f.post(t, "/agent/operations/result", gin.H{
			"api_key":      f.connector.APIKey,
			"operation_id": op.ID.String(),
			"success":      true,
			"response_xml": "<ENVELOPE><CREATED>1</CREATED></ENVELOPE>",
			"engine_guid":  "guid-42",
		})

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, string(bridge.OperationStatusCompleted), data["status"])
		assert.Equal(t, false, data["already_terminal"])
		assert.Equal(t, int64(1), f.connector.SuccessfulOperations)
	})

	t.Run("records an engine rejection", func(t *testing.T) {
		f := newGatewayFixture(t)
		op := claim(t, f)

		w := f.post(t, "/agent/operations/result", gin.H{
			"api_key":      f.connector.APIKey,
			"operation_id": op.ID.String(),
			"success":      false,
			"error":        "Ledger 'Acme Traders' does not exist!",
		})

		require.Equal(t, http.StatusOK, w.Code)
		data := decodeData(t, w)
		assert.Equal(t, string(bridge.OperationStatusFailed), data["status"])
		assert.Equal(t, "Ledger 'Acme Traders' does not exist!", f.operationRepo.operations[op.ID].ErrorMessage)
	})

	t.Run("duplicate report is a no-op", func(t *testing.T) {
		f := newGatewayFixture(t)
		op := claim(t, f)
		report := gin.H{
			"api_key":      f.connector.APIKey,
			"operation_id": op.ID.String(),
			"success":      true,
		}

		first := f.post(t, "/agent/operations/result", report)
		require.Equal(t, http.StatusOK, first.Code)

		second := f.post(t, "/agent/operations/result", report)
		require.Equal(t, http.StatusOK, second.Code)
		data := decodeData(t, second)
		assert.Equal(t, true, data["already_terminal"])
		assert.Equal(t, int64(1), f.connector.SuccessfulOperations)
	})

	t.Run("rejects a result for another connector's operation", func(t *testing.T) {
		f := newGatewayFixture(t)
		op := claim(t, f)

		other, err := bridge.NewConnector(uuid.New(), "Branch", "DESKTOP-02", "localhost", 9000)
		require.NoError(t, err)
		require.NoError(t, f.connectorRepo.Save(context.Background(), other))

		w := f.post(t, "/agent/operations/result", gin.H{
			"api_key":      other.APIKey,
			"operation_id": op.ID.String(),
			"success":      true,
		})

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("rejects malformed operation id", func(t *testing.T) {
		f := newGatewayFixture(t)

		w := f.post(t, "/agent/operations/result", gin.H{
			"api_key":      f.connector.APIKey,
			"operation_id": "not-a-uuid",
			"success":      true,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
