// FilePath: internal/actuator/control.go
package actuator

import (
	"context"
	"fmt"
	"strings"
	"time"

	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/events"
	"github.com/vermilinks/agrihub/internal/models"
	"github.com/vermilinks/agrihub/internal/repository"
)

// Deadband bounds for the automatic moisture policy. Values between the two
// leave pump state untouched so readings hovering at a single threshold do
// not chatter the hardware.
const (
	moistureOnBelow  = 50.0
	moistureOffAbove = 70.0

	temperatureFanOn  = 35.0
	temperatureFanOff = 25.0
)

const (
	TriggerManual    = "manual"
	TriggerAutomatic = "automatic"
)

// Dispatcher is the slice of the command queue the controller uses to reach
// hardware.
type Dispatcher interface {
	QueueActuatorCommand(ctx context.Context, deviceID string, payload models.CommandPayload) (*models.DeviceCommand, error)
}

// Trigger carries the provenance of a state change request.
type Trigger struct {
	By       string // TriggerManual | TriggerAutomatic
	UserID   string
	DeviceID string // target hardware; resolved from latest telemetry when empty
	Reason   string
}

// ChangeResult tells the caller whether the logical state moved and whether
// hardware delivery is already underway, so "nothing happened" and "changed
// but unconfirmed" are distinguishable.
type ChangeResult struct {
	Changed    bool                  `json:"changed"`
	Dispatched bool                  `json:"dispatched"`
	Actuator   *models.Actuator      `json:"actuator"`
	Command    *models.DeviceCommand `json:"command,omitempty"`
}

// Controller owns logical actuator state and the automatic control policy.
// Hardware delivery is delegated to the dispatch queue; the controller's row
// is updated optimistically and the device ack flag records the truth later.
type Controller struct {
	actuators repository.ActuatorRepository
	logs      repository.ActuatorLogRepository
	snapshots repository.SnapshotRepository
	readings  repository.ReadingRepository
	publisher events.Publisher
	queue     Dispatcher

	interval       time.Duration
	floatInterlock bool
}

func NewController(
	actuators repository.ActuatorRepository,
	logs repository.ActuatorLogRepository,
	snapshots repository.SnapshotRepository,
	readings repository.ReadingRepository,
	publisher events.Publisher,
	queue Dispatcher,
	interval time.Duration,
	floatInterlock bool,
) *Controller {
	return &Controller{
		actuators:      actuators,
		logs:           logs,
		snapshots:      snapshots,
		readings:       readings,
		publisher:      publisher,
		queue:          queue,
		interval:       interval,
		floatInterlock: floatInterlock,
	}
}

// Seed ensures the canonical actuator rows exist.
func (c *Controller) Seed(ctx context.Context) error {
	return c.actuators.Seed(ctx, []models.Actuator{
		{Name: "Water Pump", Type: models.ActuatorPump, Mode: models.ModeAuto},
		{Name: "Solenoid Valve", Type: models.ActuatorSolenoid, Mode: models.ModeAuto},
		{Name: "Ventilation Fan", Type: models.ActuatorFan, Mode: models.ModeAuto},
	})
}

// SetStatus changes an actuator's logical on/off state and queues the
// hardware command. Requests matching the current state are a no-op: no
// write, no audit entry, no hardware call.
func (c *Controller) SetStatus(ctx context.Context, actuatorID string, desired bool, trigger Trigger) (*ChangeResult, error) {
	act, err := c.actuators.Get(ctx, actuatorID)
	if err != nil {
		return nil, err
	}

	if act.Status == desired {
		return &ChangeResult{Changed: false, Actuator: act}, nil
	}

	if desired && c.floatInterlock && waterOutput(act.Type) {
		if empty, checkErr := c.reservoirEmpty(ctx); checkErr == nil && empty {
			return nil, errors.NewConflictError("reservoir is empty, refusing to start "+act.Name, nil)
		}
	}

	now := time.Now().UTC()
	if err := c.actuators.UpdateStatus(ctx, act.ID, desired, now); err != nil {
		return nil, err
	}
	act.Status = desired
	act.LastUpdated = now
	act.DeviceAck = true
	act.DeviceAckMessage = ""

	deviceID := trigger.DeviceID
	if deviceID == "" {
		deviceID = c.resolveTargetDevice(ctx)
	}

	c.audit(ctx, act, deviceID, desired, trigger)

	result := &ChangeResult{Changed: true, Actuator: act}
	if deviceID == "" {
		nuts.L.Warnf("[ActuatorControl] No target device for %s; state changed without hardware dispatch", act.Name)
		c.recordDispatchFailure(ctx, act, "no target device available")
	} else {
		cmd, err := c.queue.QueueActuatorCommand(ctx, deviceID, models.CommandPayload{
			Actuator:    act.Name,
			ActuatorKey: string(act.Type),
			Desired:     stateWord(desired),
			Context:     models.JSON{"triggeredBy": trigger.By, "reason": trigger.Reason},
		})
		if err != nil {
			nuts.L.Errorf("[ActuatorControl] Failed to queue command for %s: %v", act.Name, err)
			c.recordDispatchFailure(ctx, act, "command queue failed: "+err.Error())
		} else {
			result.Command = cmd
			result.Dispatched = cmd.Status == models.CommandDispatched
		}
	}

	c.publisher.Publish(ctx, events.EventActuatorUpdate, act.Sanitized())
	return result, nil
}

// SetMode flips an actuator between manual and auto. Entering auto runs the
// policy immediately so the actuator converges without waiting a tick.
func (c *Controller) SetMode(ctx context.Context, actuatorID string, mode models.ActuatorMode, trigger Trigger) (*ChangeResult, error) {
	if mode != models.ModeManual && mode != models.ModeAuto {
		return nil, errors.NewValidationError("mode must be manual or auto", nil)
	}

	act, err := c.actuators.Get(ctx, actuatorID)
	if err != nil {
		return nil, err
	}
	if act.Mode == mode {
		return &ChangeResult{Changed: false, Actuator: act}, nil
	}

	now := time.Now().UTC()
	if err := c.actuators.UpdateMode(ctx, act.ID, mode, now); err != nil {
		return nil, err
	}
	act.Mode = mode
	act.LastUpdated = now

	c.logs.Create(ctx, &models.ActuatorLog{
		DeviceID:     trigger.DeviceID,
		ActuatorType: act.Type,
		Action:       "mode:" + string(mode),
		Reason:       trigger.Reason,
		TriggeredBy:  trigger.By,
		UserID:       trigger.UserID,
		Timestamp:    now,
	})
	c.publisher.Publish(ctx, events.EventActuatorUpdate, act.Sanitized())

	if mode == models.ModeAuto {
		if _, err := c.RunAutomaticControl(ctx, "mode-change"); err != nil {
			nuts.L.Warnf("[ActuatorControl] Auto pass after mode change failed: %v", err)
		}
	}
	return &ChangeResult{Changed: true, Actuator: act}, nil
}

// AutoRunResult reports what one automatic pass did and from which sample.
type AutoRunResult struct {
	Changed []*models.Actuator `json:"changed"`
	Sample  *models.Reading    `json:"sample,omitempty"`
}

// RunAutomaticControl applies the deadband policy to every actuator in auto
// mode, driven by the single latest reading system-wide. With no telemetry
// at all the pass does nothing.
func (c *Controller) RunAutomaticControl(ctx context.Context, source string) (*AutoRunResult, error) {
	reading, err := c.readings.Latest(ctx)
	if err != nil {
		if errors.IsNotFound(err) {
			return &AutoRunResult{}, nil
		}
		return nil, err
	}

	actuators, err := c.actuators.List(ctx)
	if err != nil {
		return nil, err
	}

	result := &AutoRunResult{Sample: reading}
	for _, act := range actuators {
		if act.Mode != models.ModeAuto {
			continue
		}

		desired, decided, reason := c.decide(act, reading)
		if !decided || desired == act.Status {
			continue
		}

		trigger := Trigger{
			By:       TriggerAutomatic,
			DeviceID: reading.DeviceID,
			Reason:   fmt.Sprintf("%s (%s)", reason, source),
		}
		res, err := c.SetStatus(ctx, act.ID, desired, trigger)
		if err != nil {
			nuts.L.Errorf("[ActuatorControl] Auto policy failed for %s: %v", act.Name, err)
			continue
		}
		if res.Changed {
			result.Changed = append(result.Changed, res.Actuator)
		}
	}
	return result, nil
}

// decide evaluates the deadband policy for one actuator against a reading.
func (c *Controller) decide(act *models.Actuator, r *models.Reading) (desired, decided bool, reason string) {
	switch act.Type {
	case models.ActuatorPump, models.ActuatorSolenoid:
		if r.Moisture == nil {
			return false, false, ""
		}
		if *r.Moisture < moistureOnBelow {
			return true, true, fmt.Sprintf("moisture %.1f%% below %.0f%%", *r.Moisture, moistureOnBelow)
		}
		if *r.Moisture > moistureOffAbove {
			return false, true, fmt.Sprintf("moisture %.1f%% above %.0f%%", *r.Moisture, moistureOffAbove)
		}
	case models.ActuatorFan:
		if r.Temperature == nil {
			return false, false, ""
		}
		if *r.Temperature > temperatureFanOn {
			return true, true, fmt.Sprintf("temperature %.1f°C above %.0f°C", *r.Temperature, temperatureFanOn)
		}
		if *r.Temperature < temperatureFanOff {
			return false, true, fmt.Sprintf("temperature %.1f°C below %.0f°C", *r.Temperature, temperatureFanOff)
		}
	}
	return false, false, ""
}

// ApplyCommandAck folds a device acknowledgement back onto the actuator row.
// A failed ack does not revert the logical state; it flags the actuator so
// the next read shows hardware has not confirmed.
func (c *Controller) ApplyCommandAck(ctx context.Context, cmd *models.DeviceCommand) {
	if cmd.CommandType != "actuator" || cmd.Payload.Actuator == "" {
		return
	}
	act, err := c.actuators.GetByName(ctx, cmd.Payload.Actuator)
	if err != nil {
		nuts.L.Warnf("[ActuatorControl] Ack for unknown actuator %q: %v", cmd.Payload.Actuator, err)
		return
	}

	if cmd.Status == models.CommandCompleted {
		err = c.actuators.SetDeviceAck(ctx, act.ID, true, "")
		act.DeviceAck = true
		act.DeviceAckMessage = ""
	} else {
		msg := ackFailureMessage(cmd)
		err = c.actuators.SetDeviceAck(ctx, act.ID, false, msg)
		act.DeviceAck = false
		act.DeviceAckMessage = msg
	}
	if err != nil {
		nuts.L.Errorf("[ActuatorControl] Failed to record ack for %s: %v", act.Name, err)
		return
	}
	c.publisher.Publish(ctx, events.EventActuatorUpdate, act.Sanitized())
}

// Run drives the periodic automatic pass until the context ends.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	nuts.L.Infof("[ActuatorControl] Automatic control running every %v", c.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.RunAutomaticControl(ctx, "scheduler"); err != nil {
				nuts.L.Errorf("[ActuatorControl] Scheduled pass failed: %v", err)
			}
		}
	}
}

func (c *Controller) audit(ctx context.Context, act *models.Actuator, deviceID string, desired bool, trigger Trigger) {
	if err := c.logs.Create(ctx, &models.ActuatorLog{
		DeviceID:     deviceID,
		ActuatorType: act.Type,
		Action:       stateWord(desired),
		Reason:       trigger.Reason,
		TriggeredBy:  trigger.By,
		UserID:       trigger.UserID,
		Timestamp:    act.LastUpdated,
	}); err != nil {
		nuts.L.Errorf("[ActuatorControl] Failed to write audit log for %s: %v", act.Name, err)
	}
}

func (c *Controller) recordDispatchFailure(ctx context.Context, act *models.Actuator, msg string) {
	if err := c.actuators.SetDeviceAck(ctx, act.ID, false, msg); err != nil {
		nuts.L.Errorf("[ActuatorControl] Failed to record dispatch failure for %s: %v", act.Name, err)
		return
	}
	act.DeviceAck = false
	act.DeviceAckMessage = msg
}

// resolveTargetDevice picks the hardware target from the freshest snapshot.
// Single-gateway installations always resolve to the gateway this way.
func (c *Controller) resolveTargetDevice(ctx context.Context) string {
	snap, err := c.snapshots.Latest(ctx)
	if err != nil {
		return ""
	}
	return snap.DeviceID
}

// reservoirEmpty reads the float switch from the freshest snapshot; zero is
// the empty-reservoir sentinel.
func (c *Controller) reservoirEmpty(ctx context.Context) (bool, error) {
	snap, err := c.snapshots.Latest(ctx)
	if err != nil {
		return false, err
	}
	return snap.FloatSensor != nil && *snap.FloatSensor == 0, nil
}

func waterOutput(t models.ActuatorType) bool {
	return t == models.ActuatorPump || t == models.ActuatorSolenoid
}

func stateWord(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func ackFailureMessage(cmd *models.DeviceCommand) string {
	if cmd.ResponsePayload != nil {
		if m, ok := cmd.ResponsePayload["message"].(string); ok && strings.TrimSpace(m) != "" {
			return m
		}
	}
	return "device reported command failure"
}
