// FilePath: internal/hubservice/hubservice.go
package hubservice

import (
	"context"
	"time"

	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/actuator"
	"github.com/vermilinks/agrihub/internal/dispatch"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/evaluator"
	"github.com/vermilinks/agrihub/internal/events"
	"github.com/vermilinks/agrihub/internal/ingest"
	"github.com/vermilinks/agrihub/internal/liveness"
	"github.com/vermilinks/agrihub/internal/models"
	"github.com/vermilinks/agrihub/internal/repository"
)

// HubService composes the telemetry-to-actuation pipeline. It owns no state
// of its own; it sequences the guard, stores, evaluator, controller and
// command queue for each inbound event.
type HubService struct {
	guard     *ingest.Guard
	tracker   *liveness.Tracker
	eval      *evaluator.Evaluator
	control   *actuator.Controller
	queue     *dispatch.Queue
	publisher events.Publisher

	devices   repository.DeviceRepository
	readings  repository.ReadingRepository
	snapshots repository.SnapshotRepository
	alerts    repository.AlertRepository
	actuators repository.ActuatorRepository
	logs      repository.ActuatorLogRepository
	commands  repository.CommandRepository
	settings  repository.SettingsRepository
}

type Deps struct {
	Guard     *ingest.Guard
	Tracker   *liveness.Tracker
	Evaluator *evaluator.Evaluator
	Control   *actuator.Controller
	Queue     *dispatch.Queue
	Publisher events.Publisher

	Devices   repository.DeviceRepository
	Readings  repository.ReadingRepository
	Snapshots repository.SnapshotRepository
	Alerts    repository.AlertRepository
	Actuators repository.ActuatorRepository
	Logs      repository.ActuatorLogRepository
	Commands  repository.CommandRepository
	Settings  repository.SettingsRepository
}

func New(deps Deps) *HubService {
	return &HubService{
		guard:     deps.Guard,
		tracker:   deps.Tracker,
		eval:      deps.Evaluator,
		control:   deps.Control,
		queue:     deps.Queue,
		publisher: deps.Publisher,
		devices:   deps.Devices,
		readings:  deps.Readings,
		snapshots: deps.Snapshots,
		alerts:    deps.Alerts,
		actuators: deps.Actuators,
		logs:      deps.Logs,
		commands:  deps.Commands,
		settings:  deps.Settings,
	}
}

// HandleReading runs one telemetry payload through the full pipeline:
// guard, liveness, persistence, snapshot, evaluation, and an automatic
// control pass when the reading carries policy-relevant metrics. Returns
// whether the reading was accepted; guard rejections are not errors.
func (s *HubService) HandleReading(ctx context.Context, topic, deviceID string, payload []byte, reading *models.Reading) (bool, error) {
	if deviceID == "" {
		return false, errors.NewValidationError("device id is required", nil)
	}
	if !reading.HasMetrics() {
		return false, nil
	}

	accepted, reason, sig := s.guard.ShouldAccept(topic, deviceID, payload, time.Now().UTC())
	if !accepted {
		nuts.L.Debugf("[HubService] Dropped reading from %s: %s", deviceID, reason)
		return false, nil
	}
	reading.DedupeSignature = sig

	if _, err := s.tracker.MarkOnline(ctx, deviceID, nil); err != nil {
		nuts.L.Warnf("[HubService] Failed to mark %s online: %v", deviceID, err)
	}

	if err := s.readings.Insert(ctx, reading); err != nil {
		return false, err
	}

	if err := s.snapshots.Upsert(ctx, snapshotFrom(reading)); err != nil {
		nuts.L.Errorf("[HubService] Failed to upsert snapshot for %s: %v", deviceID, err)
	}
	s.publisher.Publish(ctx, events.EventSensorUpdate, reading)

	if _, err := s.eval.Evaluate(ctx, reading); err != nil {
		nuts.L.Errorf("[HubService] Evaluation failed for %s: %v", deviceID, err)
	}

	if !reading.IsOfflineData && (reading.Moisture != nil || reading.Temperature != nil) {
		if _, err := s.control.RunAutomaticControl(ctx, "reading"); err != nil {
			nuts.L.Errorf("[HubService] Auto control pass failed: %v", err)
		}
	}
	return true, nil
}

// HandleHeartbeat records a bare sign of life without telemetry.
func (s *HubService) HandleHeartbeat(ctx context.Context, deviceID string, metadata models.JSON) (*models.Device, error) {
	if deviceID == "" {
		return nil, errors.NewValidationError("device id is required", nil)
	}
	return s.tracker.MarkOnline(ctx, deviceID, metadata)
}

// HandleCommandAck finalizes a command and folds the result back onto the
// actuator it drove.
func (s *HubService) HandleCommandAck(ctx context.Context, commandID string, success bool, response models.JSON) (*models.DeviceCommand, error) {
	cmd, err := s.queue.HandleCommandAck(ctx, commandID, success, response)
	if err != nil {
		return nil, err
	}
	s.control.ApplyCommandAck(ctx, cmd)
	return cmd, nil
}

func snapshotFrom(r *models.Reading) *models.Snapshot {
	return &models.Snapshot{
		DeviceID:       r.DeviceID,
		Temperature:    r.Temperature,
		Humidity:       r.Humidity,
		Moisture:       r.Moisture,
		PH:             r.PH,
		EC:             r.EC,
		Nitrogen:       r.Nitrogen,
		Phosphorus:     r.Phosphorus,
		Potassium:      r.Potassium,
		WaterLevel:     r.WaterLevel,
		FloatSensor:    r.FloatSensor,
		BatteryLevel:   r.BatteryLevel,
		SignalStrength: r.SignalStrength,
		Timestamp:      r.Timestamp,
		UpdatedAt:      time.Now().UTC(),
	}
}

// Accessors for the API layer.

func (s *HubService) Devices() repository.DeviceRepository     { return s.devices }
func (s *HubService) Readings() repository.ReadingRepository   { return s.readings }
func (s *HubService) Snapshots() repository.SnapshotRepository { return s.snapshots }
func (s *HubService) Alerts() repository.AlertRepository       { return s.alerts }
func (s *HubService) Actuators() repository.ActuatorRepository { return s.actuators }
func (s *HubService) Logs() repository.ActuatorLogRepository   { return s.logs }
func (s *HubService) Commands() repository.CommandRepository   { return s.commands }
func (s *HubService) Settings() repository.SettingsRepository  { return s.settings }
func (s *HubService) Controller() *actuator.Controller         { return s.control }
func (s *HubService) Queue() *dispatch.Queue                   { return s.queue }
func (s *HubService) Tracker() *liveness.Tracker               { return s.tracker }
