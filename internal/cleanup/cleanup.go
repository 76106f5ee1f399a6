// FilePath: internal/cleanup/cleanup.go
package cleanup

import (
	"context"
	"time"

	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/repository"
)

// PruneService drops aged rows so the time-series and audit tables stay
// bounded: raw readings past retention, resolved alerts, terminal commands
// and old actuator logs. Open alerts and non-terminal commands are never
// touched.
type PruneService struct {
	readings repository.ReadingRepository
	alerts   repository.AlertRepository
	commands repository.CommandRepository
	logs     repository.ActuatorLogRepository
	events   *nuts.EventEmitter

	maxAge   time.Duration
	interval time.Duration
}

func New(
	readings repository.ReadingRepository,
	alerts repository.AlertRepository,
	commands repository.CommandRepository,
	logs repository.ActuatorLogRepository,
	maxAge, interval time.Duration,
) *PruneService {
	return &PruneService{
		readings: readings,
		alerts:   alerts,
		commands: commands,
		logs:     logs,
		events:   nuts.NewEventEmitter(),
		maxAge:   maxAge,
		interval: interval,
	}
}

// OnPrune registers a listener for completed prune passes.
func (s *PruneService) OnPrune(handler func(result *PruneResult)) {
	s.events.On("prune.completed", "prune_handler", func(args ...interface{}) {
		if len(args) > 0 {
			if result, ok := args[0].(*PruneResult); ok {
				handler(result)
			}
		}
	})
}

// PruneResult counts the rows removed in one pass.
type PruneResult struct {
	Readings     int64 `json:"readings"`
	Alerts       int64 `json:"alerts"`
	Commands     int64 `json:"commands"`
	ActuatorLogs int64 `json:"actuator_logs"`
}

// Prune runs one retention pass. Each table is pruned independently; one
// failing delete does not stop the others.
func (s *PruneService) Prune(ctx context.Context) (*PruneResult, error) {
	cutoff := time.Now().UTC().Add(-s.maxAge)
	result := &PruneResult{}

	var err error
	if result.Readings, err = s.readings.DeleteOlderThan(ctx, cutoff); err != nil {
		nuts.L.Errorf("[Prune] Failed to prune readings: %v", err)
	}
	if result.Alerts, err = s.alerts.DeleteResolvedBefore(ctx, cutoff); err != nil {
		nuts.L.Errorf("[Prune] Failed to prune alerts: %v", err)
	}
	if result.Commands, err = s.commands.DeleteTerminalBefore(ctx, cutoff); err != nil {
		nuts.L.Errorf("[Prune] Failed to prune commands: %v", err)
	}
	if result.ActuatorLogs, err = s.logs.DeleteOlderThan(ctx, cutoff); err != nil {
		nuts.L.Errorf("[Prune] Failed to prune actuator logs: %v", err)
	}

	s.events.Emit("prune.completed", result)
	return result, nil
}

// Run prunes on the configured interval until the context ends.
func (s *PruneService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	nuts.L.Infof("[Prune] Retention pruning every %v, max age %v", s.interval, s.maxAge)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Prune(ctx); err != nil {
				nuts.L.Errorf("[Prune] Pass failed: %v", err)
			}
		}
	}
}
