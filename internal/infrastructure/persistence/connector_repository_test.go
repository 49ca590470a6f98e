package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/accountsync/backend/internal/domain/bridge"
	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveConnector(t *testing.T, repo *GormConnectorRepository, tenantID uuid.UUID, name string) *bridge.Connector {
	t.Helper()
	c, err := bridge.NewConnector(tenantID, name, "PC-"+name, "localhost", 9000)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), c))
	return c
}

func TestGormConnectorRepository_FindByAPIKey(t *testing.T) {
	db := setupBridgeTestDB(t)
	repo := NewGormConnectorRepository(db)
	ctx := context.Background()

	c := saveConnector(t, repo, uuid.New(), "Head Office")

	found, err := repo.FindByAPIKey(ctx, c.APIKey)
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)
	assert.Equal(t, c.Name, found.Name)

	_, err = repo.FindByAPIKey(ctx, "no-such-key")
	assert.ErrorIs(t, err, bridge.ErrInvalidAPIKey)

	_, err = repo.FindByAPIKey(ctx, "")
	assert.ErrorIs(t, err, bridge.ErrInvalidAPIKey)
}

func TestGormConnectorRepository_FindActiveForTenant(t *testing.T) {
	db := setupBridgeTestDB(t)
	repo := NewGormConnectorRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	idle := saveConnector(t, repo, tenantID, "Idle")
	_ = idle

	active := saveConnector(t, repo, tenantID, "Active")
	active.RecordHeartbeat("1.0.0", "", time.Now())
	require.NoError(t, repo.Save(ctx, active))

	found, err := repo.FindActiveForTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)

	_, err = repo.FindActiveForTenant(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormConnectorRepository_FindSilentSince(t *testing.T) {
	db := setupBridgeTestDB(t)
	repo := NewGormConnectorRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	silent := saveConnector(t, repo, tenantID, "Silent")
	silent.RecordHeartbeat("", "", time.Now().Add(-20*time.Minute))
	require.NoError(t, repo.Save(ctx, silent))

	fresh := saveConnector(t, repo, tenantID, "Fresh")
	fresh.RecordHeartbeat("", "", time.Now())
	require.NoError(t, repo.Save(ctx, fresh))

	// never sent a heartbeat but inactive, so a sweep over active ignores it
	saveConnector(t, repo, tenantID, "Never")

	found, err := repo.FindSilentSince(ctx, time.Now().Add(-10*time.Minute), bridge.ConnectorStatusActive)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, silent.ID, found[0].ID)
}

func TestGormConnectorRepository_Delete(t *testing.T) {
	db := setupBridgeTestDB(t)
	repo := NewGormConnectorRepository(db)
	opRepo := NewGormOperationRepository(db)
	ctx := context.Background()

	busy := saveConnector(t, repo, uuid.New(), "Busy")
	enqueueOperation(t, opRepo, busy.ID, bridge.PriorityNormal)

	// a connector with queued work cannot be deleted
	err := repo.Delete(ctx, busy.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	idle := saveConnector(t, repo, uuid.New(), "Idle")
	require.NoError(t, repo.Delete(ctx, idle.ID))

	_, err = repo.FindByID(ctx, idle.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormMasterRepository_Upsert(t *testing.T) {
	db := setupBridgeTestDB(t)
	repo := NewGormMasterRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	master, err := bridge.NewTallyMaster(tenantID, bridge.MasterTypeLedger, "HDFC Bank", "Bank Accounts", "guid-1")
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, master))

	// same identity with fresh data updates in place
	refreshed, err := bridge.NewTallyMaster(tenantID, bridge.MasterTypeLedger, "HDFC Bank", "Bank Accounts (Current)", "guid-1")
	require.NoError(t, err)
	refreshed.Data = `{"opening_balance":5000}`
	require.NoError(t, repo.Upsert(ctx, refreshed))

	masters, err := repo.FindAllForTenant(ctx, tenantID, bridge.MasterTypeLedger)
	require.NoError(t, err)
	require.Len(t, masters, 1)
	assert.Equal(t, "Bank Accounts (Current)", masters[0].Parent)
	assert.Equal(t, `{"opening_balance":5000}`, masters[0].Data)

	// a different master type is a separate record
	group, err := bridge.NewTallyMaster(tenantID, bridge.MasterTypeGroup, "HDFC Bank", "", "")
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, group))

	all, err := repo.FindAllForTenant(ctx, tenantID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
