package agent

import (
	"context"
	"time"

	"github.com/accountsync/backend/internal/infrastructure/tally"
	"go.uber.org/zap"
)

// EngineExecutor is the local accounting engine as the poller sees it
type EngineExecutor interface {
	// Execute posts one request payload and classifies the response.
	// A transport failure returns an error; a reachable engine always
	// yields an outcome, even for rejected imports.
	Execute(ctx context.Context, requestXML string) (tally.Outcome, error)
	// Status reports reachability and the engine's open companies.
	Status(ctx context.Context) (bool, []string)
}

// Poller is the agent's main loop. Every tick it claims pending
// operations from the bridge and executes them against the local
// engine; every Nth tick it also sends a heartbeat.
//
// When the engine is unreachable the poller claims nothing: operations
// stay queued on the bridge instead of burning retries. An operation
// that was claimed but never reported is requeued by the bridge's
// stale sweep.
type Poller struct {
	bridge BridgeAPI
	engine EngineExecutor
	cfg    *Config
	logger *zap.Logger

	polls int
}

// NewPoller creates a poller over the given bridge and engine clients
func NewPoller(bridge BridgeAPI, engine EngineExecutor, cfg *Config, logger *zap.Logger) *Poller {
	return &Poller{
		bridge: bridge,
		engine: engine,
		cfg:    cfg,
		logger: logger,
	}
}

// Run executes the poll loop until the context is cancelled. An initial
// heartbeat announces the agent before the first tick.
func (p *Poller) Run(ctx context.Context) error {
	p.heartbeat(ctx)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Poller stopping")
			return ctx.Err()
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one poll cycle
func (p *Poller) Tick(ctx context.Context) {
	p.polls++
	if p.polls%p.cfg.HeartbeatEvery == 0 {
		p.heartbeat(ctx)
	}

	statusCtx, cancel := context.WithTimeout(ctx, p.cfg.StatusTimeout)
	connected, _ := p.engine.Status(statusCtx)
	cancel()
	if !connected {
		p.logger.Debug("Engine unreachable, skipping poll")
		return
	}

	ops, err := p.bridge.FetchPending(ctx, p.cfg.ClaimLimit)
	if err != nil {
		p.logger.Warn("Failed to fetch pending operations", zap.Error(err))
		return
	}
	if len(ops) == 0 {
		return
	}

	p.logger.Info("Claimed operations", zap.Int("count", len(ops)))
	for _, op := range ops {
		if !p.execute(ctx, op) {
			// engine went away mid-batch; remaining claims are left
			// for the stale sweep to requeue
			return
		}
	}
}

// execute runs one operation against the engine and reports the
// outcome. It returns false when the engine became unreachable and
// the batch should stop.
func (p *Poller) execute(ctx context.Context, op Operation) bool {
	start := time.Now()

	execCtx, cancel := context.WithTimeout(ctx, p.cfg.ImportTimeout)
	outcome, err := p.engine.Execute(execCtx, op.RequestXML)
	cancel()
	if err != nil {
		p.logger.Warn("Engine call failed, leaving operation claimed",
			zap.String("operation_id", op.ID.String()),
			zap.Error(err))
		return false
	}

	result := OperationResult{
		OperationID: op.ID,
		Success:     outcome.Success,
		ResponseXML: outcome.Raw,
		Error:       outcome.ErrorMessage(),
		EngineGUID:  outcome.GUID,
		DurationMS:  time.Since(start).Milliseconds(),
	}
	if err := p.bridge.ReportResult(ctx, result); err != nil {
		p.logger.Warn("Failed to report operation result",
			zap.String("operation_id", op.ID.String()),
			zap.Error(err))
		return true
	}

	p.logger.Info("Operation executed",
		zap.String("operation_id", op.ID.String()),
		zap.String("type", op.Type),
		zap.Bool("success", outcome.Success),
		zap.Int64("duration_ms", result.DurationMS))
	return true
}

func (p *Poller) heartbeat(ctx context.Context) {
	statusCtx, cancel := context.WithTimeout(ctx, p.cfg.StatusTimeout)
	connected, companies := p.engine.Status(statusCtx)
	cancel()

	ack, err := p.bridge.Heartbeat(ctx, HeartbeatReport{
		ConnectorVersion: p.cfg.Version,
		EngineConnected:  connected,
		Companies:        companies,
	})
	if err != nil {
		p.logger.Warn("Heartbeat failed", zap.Error(err))
		return
	}
	p.logger.Debug("Heartbeat acknowledged",
		zap.String("connector_id", ack.ConnectorID.String()),
		zap.Int64("pending", ack.PendingCount))
}

// tallyExecutor adapts tally.Client to the EngineExecutor interface
type tallyExecutor struct {
	client *tally.Client
	logger *zap.Logger
}

// NewTallyExecutor creates the production engine executor
func NewTallyExecutor(engineURL string, importTimeout time.Duration, logger *zap.Logger) EngineExecutor {
	return &tallyExecutor{
		client: tally.NewClient(engineURL, importTimeout, logger),
		logger: logger,
	}
}

func (e *tallyExecutor) Execute(ctx context.Context, requestXML string) (tally.Outcome, error) {
	return e.client.ImportVoucher(ctx, requestXML)
}

func (e *tallyExecutor) Status(ctx context.Context) (bool, []string) {
	if err := e.client.Ping(ctx); err != nil {
		return false, nil
	}
	companies, err := e.client.ListCompanies(ctx)
	if err != nil {
		// reachable but the company list failed; still report connected
		return true, nil
	}
	return true, companies
}
