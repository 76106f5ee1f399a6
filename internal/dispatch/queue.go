// FilePath: internal/dispatch/queue.go
package dispatch

import (
	"context"
	"sync/atomic"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/events"
	"github.com/vermilinks/agrihub/internal/models"
	"github.com/vermilinks/agrihub/internal/repository"
)

const (
	flushBatchSize = 50
	staleBatchSize = 50
)

// LivenessMarker is the slice of the liveness tracker the queue needs:
// a device that registers a channel has proven it is alive.
type LivenessMarker interface {
	MarkOnline(ctx context.Context, deviceID string, metadata models.JSON) (*models.Device, error)
}

// Queue owns the command lifecycle: persist first, then deliver, then retry
// until the device acknowledges. Commands survive hub restarts because the
// row is the source of truth; channels are just the fast path.
type Queue struct {
	commands  repository.CommandRepository
	publisher events.Publisher
	liveness  LivenessMarker
	direct    *DirectCaller

	retryEvery time.Duration
	staleAfter time.Duration

	channels cmap.ConcurrentMap[string, Channel]
	retrying atomic.Bool
}

func NewQueue(
	commands repository.CommandRepository,
	publisher events.Publisher,
	liveness LivenessMarker,
	direct *DirectCaller,
	retryEvery, staleAfter time.Duration,
) *Queue {
	return &Queue{
		commands:   commands,
		publisher:  publisher,
		liveness:   liveness,
		direct:     direct,
		retryEvery: retryEvery,
		staleAfter: staleAfter,
		channels:   cmap.New[Channel](),
	}
}

// RegisterChannel binds a live downstream channel to a device. Registration
// is proof of life, so the device is marked online and any commands parked
// while it was unreachable are flushed immediately.
func (q *Queue) RegisterChannel(ctx context.Context, deviceID string, ch Channel) {
	q.channels.Set(deviceID, ch)
	nuts.L.Infof("[CommandQueue] Registered %s channel for device %s", ch.Kind(), deviceID)

	if _, err := q.liveness.MarkOnline(ctx, deviceID, nil); err != nil {
		nuts.L.Warnf("[CommandQueue] Failed to mark %s online on register: %v", deviceID, err)
	}
	q.DispatchPending(ctx, deviceID)
}

// DeregisterChannel drops the device's channel if it is still the given one.
// A reconnect may have already replaced it; that newer channel stays.
func (q *Queue) DeregisterChannel(deviceID string, ch Channel) {
	q.channels.RemoveCb(deviceID, func(key string, current Channel, exists bool) bool {
		return exists && current == ch
	})
}

// QueueActuatorCommand persists a command and attempts immediate delivery.
// The returned row reflects the post-attempt status: dispatched when a
// channel took it, pending when the device is unreachable.
func (q *Queue) QueueActuatorCommand(ctx context.Context, deviceID string, payload models.CommandPayload) (*models.DeviceCommand, error) {
	cmd := &models.DeviceCommand{
		DeviceID:    deviceID,
		CommandType: "actuator",
		Payload:     payload,
		Status:      models.CommandPending,
		RequestedAt: time.Now().UTC(),
	}
	if err := q.commands.Create(ctx, cmd); err != nil {
		return nil, err
	}
	q.publisher.Publish(ctx, events.EventCommandCreated, cmd)

	q.tryDispatch(ctx, cmd)
	return cmd, nil
}

// HandleCommandAck finalizes a command from a device acknowledgement.
// Duplicate acks surface as a conflict error from the repository.
func (q *Queue) HandleCommandAck(ctx context.Context, commandID string, success bool, response models.JSON) (*models.DeviceCommand, error) {
	cmd, err := q.commands.Complete(ctx, commandID, success, response, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	nuts.L.Infof("[CommandQueue] Command %s acknowledged by %s (%s)", cmd.ID, cmd.DeviceID, cmd.Status)
	q.publisher.Publish(ctx, events.EventCommandUpdate, cmd)
	return cmd, nil
}

// DispatchPending pushes the device's parked commands down its channel, in
// request order.
func (q *Queue) DispatchPending(ctx context.Context, deviceID string) {
	pending, err := q.commands.ListPendingByDevice(ctx, deviceID, flushBatchSize)
	if err != nil {
		nuts.L.Errorf("[CommandQueue] Failed to list pending commands for %s: %v", deviceID, err)
		return
	}
	for _, cmd := range pending {
		q.tryDispatch(ctx, cmd)
	}
}

// tryDispatch attempts one delivery over the device's channel, falling back
// to the direct HTTP path. The dispatched mark happens only after a send
// succeeds, and the guarded update keeps a concurrent ack from being undone.
func (q *Queue) tryDispatch(ctx context.Context, cmd *models.DeviceCommand) bool {
	msg := models.CommandMessage{
		CommandID:   cmd.ID,
		Type:        cmd.CommandType,
		RequestedAt: cmd.RequestedAt,
		Payload:     cmd.Payload,
	}

	var sendErr error
	if ch, ok := q.channels.Get(cmd.DeviceID); ok {
		sendErr = ch.Send(ctx, msg)
	} else if q.direct != nil {
		sendErr = q.direct.Call(ctx, cmd.DeviceID, msg)
	} else {
		return false
	}
	if sendErr != nil {
		nuts.L.Warnf("[CommandQueue] Delivery of %s to %s failed: %v", cmd.ID, cmd.DeviceID, sendErr)
		return false
	}

	at := time.Now().UTC()
	moved, err := q.commands.MarkDispatched(ctx, cmd.ID, at)
	if err != nil {
		nuts.L.Errorf("[CommandQueue] Failed to mark %s dispatched: %v", cmd.ID, err)
		return false
	}
	if !moved {
		// Acked between send and mark; the terminal state wins.
		return false
	}

	// Mirror the row so subscribers see the state the update just wrote.
	cmd.Status = models.CommandDispatched
	cmd.DispatchedAt = &at
	cmd.UpdatedAt = at
	q.publisher.Publish(ctx, events.EventCommandUpdate, cmd)
	return true
}

// Run drives the retry loop until the context ends. Each pass requeues
// dispatched commands that were never acknowledged and re-attempts delivery.
// A pass that overruns the interval is simply skipped rather than stacked.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.retryEvery)
	defer ticker.Stop()

	nuts.L.Infof("[CommandQueue] Retry loop running every %v (stale after %v)", q.retryEvery, q.staleAfter)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !q.retrying.CompareAndSwap(false, true) {
				continue
			}
			q.retryPass(ctx)
			q.retrying.Store(false)
		}
	}
}

func (q *Queue) retryPass(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-q.staleAfter)
	stale, err := q.commands.ListStale(ctx, cutoff, staleBatchSize)
	if err != nil {
		nuts.L.Errorf("[CommandQueue] Failed to list stale commands: %v", err)
		return
	}

	for _, cmd := range stale {
		if cmd.Status == models.CommandDispatched {
			requeued, err := q.commands.MarkPending(ctx, cmd.ID)
			if err != nil {
				nuts.L.Errorf("[CommandQueue] Failed to requeue %s: %v", cmd.ID, err)
				continue
			}
			if !requeued {
				// Acked since the listing; leave it be.
				continue
			}
			cmd.Status = models.CommandPending
			nuts.L.Infof("[CommandQueue] Requeued unacknowledged command %s for %s", cmd.ID, cmd.DeviceID)
		}
		q.tryDispatch(ctx, cmd)
	}
}
