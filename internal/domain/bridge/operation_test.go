package bridge

import (
	"testing"
	"time"

	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOperation_Defaults(t *testing.T) {
	op := NewOperation(uuid.New(), uuid.New(), OperationTypeCreateVoucher, 99, "<ENVELOPE/>", "{}")

	assert.Equal(t, OperationStatusPending, op.Status)
	assert.Equal(t, PriorityNormal, op.Priority)
	assert.Equal(t, DefaultMaxRetries, op.MaxRetries)
	assert.Zero(t, op.RetryCount)
}

func TestOperation_Lifecycle(t *testing.T) {
	op := NewOperation(uuid.New(), uuid.New(), OperationTypeCreateVoucher, PriorityUrgent, "<ENVELOPE/>", "{}")

	started := time.Now()
	require.NoError(t, op.Start(started))
	assert.Equal(t, OperationStatusInProgress, op.Status)
	require.NotNil(t, op.StartedAt)

	// a claimed operation cannot be claimed again
	assert.ErrorIs(t, op.Start(time.Now()), shared.ErrInvalidState)

	done := time.Now()
	assert.True(t, op.Complete("<RESPONSE/>", `{"guid":"abc"}`, done))
	assert.Equal(t, OperationStatusCompleted, op.Status)
	require.NotNil(t, op.CompletedAt)
}

func TestOperation_CompleteIsIdempotent(t *testing.T) {
	op := NewOperation(uuid.New(), uuid.New(), OperationTypeCreateVoucher, PriorityNormal, "<ENVELOPE/>", "{}")
	require.NoError(t, op.Start(time.Now()))

	assert.True(t, op.Complete("<RESPONSE/>", "{}", time.Now()))
	assert.False(t, op.Complete("<RESPONSE/>", "{}", time.Now()))
	assert.False(t, op.Fail("<RESPONSE/>", "late failure", time.Now()))
	assert.Equal(t, OperationStatusCompleted, op.Status)
}

func TestOperation_Fail(t *testing.T) {
	op := NewOperation(uuid.New(), uuid.New(), OperationTypeCreateVoucher, PriorityNormal, "<ENVELOPE/>", "{}")
	require.NoError(t, op.Start(time.Now()))

	assert.True(t, op.Fail("<RESPONSE/>", "ledger does not exist", time.Now()))
	assert.Equal(t, OperationStatusFailed, op.Status)
	assert.Equal(t, "ledger does not exist", op.ErrorMessage)
	assert.False(t, op.Complete("<RESPONSE/>", "{}", time.Now()))
}

func TestOperation_CancelOnlyPending(t *testing.T) {
	op := NewOperation(uuid.New(), uuid.New(), OperationTypeCreateVoucher, PriorityNormal, "<ENVELOPE/>", "{}")

	require.NoError(t, op.Cancel())
	assert.Equal(t, OperationStatusCancelled, op.Status)

	claimed := NewOperation(uuid.New(), uuid.New(), OperationTypeCreateVoucher, PriorityNormal, "<ENVELOPE/>", "{}")
	require.NoError(t, claimed.Start(time.Now()))
	assert.Error(t, claimed.Cancel())
}

func TestOperation_RetryBudget(t *testing.T) {
	op := NewOperation(uuid.New(), uuid.New(), OperationTypeCreateVoucher, PriorityNormal, "<ENVELOPE/>", "{}")

	for i := 0; i < DefaultMaxRetries; i++ {
		require.NoError(t, op.Start(time.Now()))
		assert.True(t, op.CanRetry())
		op.ResetForRetry()
		assert.Equal(t, OperationStatusPending, op.Status)
		assert.Nil(t, op.StartedAt)
	}

	require.NoError(t, op.Start(time.Now()))
	assert.False(t, op.CanRetry())
	op.Exhaust(time.Now())
	assert.Equal(t, OperationStatusFailed, op.Status)
	assert.NotEmpty(t, op.ErrorMessage)
}

func TestOperation_IsTerminal(t *testing.T) {
	op := NewOperation(uuid.New(), uuid.New(), OperationTypeCreateVoucher, PriorityNormal, "<ENVELOPE/>", "{}")
	assert.False(t, op.IsTerminal())

	op.Status = OperationStatusCompleted
	assert.True(t, op.IsTerminal())
	op.Status = OperationStatusFailed
	assert.True(t, op.IsTerminal())
	op.Status = OperationStatusCancelled
	assert.True(t, op.IsTerminal())
}
