// FilePath: internal/liveness/tracker.go
package liveness

import (
	"context"
	"sync"
	"time"

	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/events"
	"github.com/vermilinks/agrihub/internal/models"
	"github.com/vermilinks/agrihub/internal/repository"
)

// Tracker owns device online/offline state. Every sign of life re-arms a
// per-device offline timer; when a timer fires without further contact the
// device is flipped offline and its open alerts are closed, since stale
// alerts on a silent device are noise.
type Tracker struct {
	devices   repository.DeviceRepository
	alerts    repository.AlertRepository
	publisher events.Publisher

	offlineTimeout time.Duration
	disableTimers  bool

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func NewTracker(
	devices repository.DeviceRepository,
	alerts repository.AlertRepository,
	publisher events.Publisher,
	offlineTimeout time.Duration,
	disableTimers bool,
) *Tracker {
	return &Tracker{
		devices:        devices,
		alerts:         alerts,
		publisher:      publisher,
		offlineTimeout: offlineTimeout,
		disableTimers:  disableTimers,
		timers:         make(map[string]*time.Timer),
	}
}

// MarkOnline records contact from a device: upserts the row, refreshes the
// heartbeat, re-arms the offline timer and announces the status change.
func (t *Tracker) MarkOnline(ctx context.Context, deviceID string, metadata models.JSON) (*models.Device, error) {
	device, err := t.devices.MarkOnline(ctx, deviceID, time.Now().UTC(), metadata)
	if err != nil {
		return nil, err
	}

	t.armTimer(deviceID)
	t.publisher.Publish(ctx, events.EventDeviceStatus, device)
	return device, nil
}

// MarkOffline flips a device offline and closes its open alerts. Alert
// resolution is best-effort; a failure there never blocks the status change.
func (t *Tracker) MarkOffline(ctx context.Context, deviceID string) (*models.Device, error) {
	t.cancelTimer(deviceID)

	device, err := t.devices.MarkOffline(ctx, deviceID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	resolved, err := t.alerts.ResolveByDevice(ctx, deviceID, time.Now().UTC())
	if err != nil {
		nuts.L.Warnf("[Liveness] Failed to resolve alerts for offline device %s: %v", deviceID, err)
	} else if resolved > 0 {
		nuts.L.Infof("[Liveness] Resolved %d open alerts for offline device %s", resolved, deviceID)
	}

	t.publisher.Publish(ctx, events.EventDeviceStatus, device)
	return device, nil
}

func (t *Tracker) armTimer(deviceID string) {
	if t.disableTimers {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	if existing, ok := t.timers[deviceID]; ok {
		existing.Stop()
	}
	t.timers[deviceID] = time.AfterFunc(t.offlineTimeout, func() {
		t.onTimeout(deviceID)
	})
}

func (t *Tracker) cancelTimer(deviceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[deviceID]; ok {
		timer.Stop()
		delete(t.timers, deviceID)
	}
}

func (t *Tracker) onTimeout(deviceID string) {
	t.mu.Lock()
	delete(t.timers, deviceID)
	t.mu.Unlock()

	nuts.L.Infof("[Liveness] Device %s silent for %v, marking offline", deviceID, t.offlineTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := t.MarkOffline(ctx, deviceID); err != nil {
		nuts.L.Errorf("[Liveness] Failed to mark device %s offline: %v", deviceID, err)
	}
}

// Stop cancels all armed timers. Pending timeouts are dropped, not fired.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for deviceID, timer := range t.timers {
		timer.Stop()
		delete(t.timers, deviceID)
	}
}
