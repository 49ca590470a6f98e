package bridge

import "github.com/accountsync/backend/internal/domain/shared"

// Bridge-specific domain errors
var (
	ErrInvalidAPIKey     = shared.NewDomainError("BRIDGE_AUTH", "Invalid or unknown API key")
	ErrNoActiveConnector = shared.NewDomainError("BRIDGE_CONFIG", "No active connector registered for tenant")
	ErrEngineUnavailable = shared.NewDomainError("ENGINE_UNAVAILABLE", "Accounting engine is not reachable")
)
