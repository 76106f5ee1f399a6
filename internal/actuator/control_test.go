// FilePath: internal/actuator/control_test.go
package actuator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vermilinks/agrihub/internal/database"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/models"
)

type fakeActuatorRepo struct {
	mu        sync.Mutex
	actuators map[string]*models.Actuator
}

func newFakeActuatorRepo() *fakeActuatorRepo {
	return &fakeActuatorRepo{actuators: map[string]*models.Actuator{}}
}

func (f *fakeActuatorRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, nil
}

func (f *fakeActuatorRepo) Seed(ctx context.Context, defaults []models.Actuator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, def := range defaults {
		exists := false
		for _, a := range f.actuators {
			if a.Name == def.Name {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		act := def
		act.ID = "act_" + string(def.Type)
		act.DeviceAck = true
		f.actuators[act.ID] = &act
	}
	return nil
}

func (f *fakeActuatorRepo) List(ctx context.Context) ([]*models.Actuator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Actuator{}
	for _, a := range f.actuators {
		clone := *a
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeActuatorRepo) Get(ctx context.Context, id string) (*models.Actuator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.actuators[id]; ok {
		clone := *a
		return &clone, nil
	}
	return nil, errors.NewNotFoundError("actuator not found", nil)
}

func (f *fakeActuatorRepo) GetByName(ctx context.Context, name string) (*models.Actuator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.actuators {
		if a.Name == name {
			clone := *a
			return &clone, nil
		}
	}
	return nil, errors.NewNotFoundError("actuator not found", nil)
}

func (f *fakeActuatorRepo) UpdateStatus(ctx context.Context, id string, status bool, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.actuators[id]
	if !ok {
		return errors.NewNotFoundError("actuator not found", nil)
	}
	a.Status = status
	a.LastUpdated = at
	a.DeviceAck = true
	a.DeviceAckMessage = ""
	return nil
}

func (f *fakeActuatorRepo) UpdateMode(ctx context.Context, id string, mode models.ActuatorMode, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.actuators[id]
	if !ok {
		return errors.NewNotFoundError("actuator not found", nil)
	}
	a.Mode = mode
	a.LastUpdated = at
	return nil
}

func (f *fakeActuatorRepo) SetDeviceAck(ctx context.Context, id string, ack bool, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.actuators[id]
	if !ok {
		return errors.NewNotFoundError("actuator not found", nil)
	}
	a.DeviceAck = ack
	a.DeviceAckMessage = message
	return nil
}

type fakeLogRepo struct {
	mu      sync.Mutex
	entries []*models.ActuatorLog
}

func (f *fakeLogRepo) BeginTx(ctx context.Context) (database.Transaction, error) { return nil, nil }
func (f *fakeLogRepo) Create(ctx context.Context, entry *models.ActuatorLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}
func (f *fakeLogRepo) ListRecent(ctx context.Context, limit int) ([]*models.ActuatorLog, error) {
	return f.entries, nil
}
func (f *fakeLogRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeLogRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type fakeSnapshotRepo struct {
	latest *models.Snapshot
}

func (f *fakeSnapshotRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, nil
}
func (f *fakeSnapshotRepo) Upsert(ctx context.Context, snapshot *models.Snapshot) error {
	f.latest = snapshot
	return nil
}
func (f *fakeSnapshotRepo) Get(ctx context.Context, deviceID string) (*models.Snapshot, error) {
	if f.latest != nil && f.latest.DeviceID == deviceID {
		return f.latest, nil
	}
	return nil, errors.NewNotFoundError("snapshot not found", nil)
}
func (f *fakeSnapshotRepo) Latest(ctx context.Context) (*models.Snapshot, error) {
	if f.latest == nil {
		return nil, errors.NewNotFoundError("no snapshots recorded", nil)
	}
	return f.latest, nil
}

type fakeReadingRepo struct {
	latest *models.Reading
}

func (f *fakeReadingRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, nil
}
func (f *fakeReadingRepo) Insert(ctx context.Context, reading *models.Reading) error {
	f.latest = reading
	return nil
}
func (f *fakeReadingRepo) Latest(ctx context.Context) (*models.Reading, error) {
	if f.latest == nil {
		return nil, errors.NewNotFoundError("no readings recorded", nil)
	}
	return f.latest, nil
}
func (f *fakeReadingRepo) LatestByDevice(ctx context.Context, deviceID string) (*models.Reading, error) {
	return f.Latest(ctx)
}
func (f *fakeReadingRepo) ListByDevice(ctx context.Context, deviceID string, from, to time.Time, offset, limit int) ([]*models.Reading, error) {
	return nil, nil
}
func (f *fakeReadingRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakeDispatcher struct {
	mu     sync.Mutex
	queued []models.CommandPayload
	target string
}

func (f *fakeDispatcher) QueueActuatorCommand(ctx context.Context, deviceID string, payload models.CommandPayload) (*models.DeviceCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, payload)
	f.target = deviceID
	now := time.Now().UTC()
	return &models.DeviceCommand{
		ID:           "cmd_test",
		DeviceID:     deviceID,
		CommandType:  "actuator",
		Payload:      payload,
		Status:       models.CommandDispatched,
		RequestedAt:  now,
		DispatchedAt: &now,
	}, nil
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queued)
}

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, event string, data interface{}) {}
func (nopPublisher) Close() error                                                { return nil }

func f64(v float64) *float64 { return &v }

type fixture struct {
	ctl       *Controller
	actuators *fakeActuatorRepo
	logs      *fakeLogRepo
	snapshots *fakeSnapshotRepo
	readings  *fakeReadingRepo
	queue     *fakeDispatcher
}

func newFixture(t *testing.T, interlock bool) *fixture {
	t.Helper()
	f := &fixture{
		actuators: newFakeActuatorRepo(),
		logs:      &fakeLogRepo{},
		snapshots: &fakeSnapshotRepo{},
		readings:  &fakeReadingRepo{},
		queue:     &fakeDispatcher{},
	}
	f.ctl = NewController(f.actuators, f.logs, f.snapshots, f.readings,
		nopPublisher{}, f.queue, time.Second, interlock)
	require.NoError(t, f.ctl.Seed(context.Background()))
	return f
}

func (f *fixture) byType(t *testing.T, typ models.ActuatorType) *models.Actuator {
	t.Helper()
	actuators, err := f.actuators.List(context.Background())
	require.NoError(t, err)
	for _, a := range actuators {
		if a.Type == typ {
			return a
		}
	}
	t.Fatalf("no actuator of type %s", typ)
	return nil
}

func TestSeedIsIdempotent(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.ctl.Seed(context.Background()))

	actuators, err := f.actuators.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, actuators, 3)
}

func TestSetStatusChangesStateAndDispatches(t *testing.T) {
	f := newFixture(t, false)
	f.snapshots.latest = &models.Snapshot{DeviceID: "dev-1"}
	pump := f.byType(t, models.ActuatorPump)

	res, err := f.ctl.SetStatus(context.Background(), pump.ID, true, Trigger{By: TriggerManual, UserID: "usr_1"})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.True(t, res.Actuator.Status)
	assert.True(t, res.Dispatched)
	assert.Equal(t, 1, f.queue.count())
	assert.Equal(t, "dev-1", f.queue.target)
	assert.Equal(t, "on", f.queue.queued[0].Desired)
	assert.Equal(t, 1, f.logs.count())
	assert.Equal(t, TriggerManual, f.logs.entries[0].TriggeredBy)
	assert.Equal(t, "usr_1", f.logs.entries[0].UserID)
}

func TestSetStatusSameStateIsNoOp(t *testing.T) {
	f := newFixture(t, false)
	f.snapshots.latest = &models.Snapshot{DeviceID: "dev-1"}
	pump := f.byType(t, models.ActuatorPump)

	res, err := f.ctl.SetStatus(context.Background(), pump.ID, true, Trigger{By: TriggerManual})
	require.NoError(t, err)
	require.True(t, res.Changed)

	// Second identical request: no write, no log, no hardware call.
	res, err = f.ctl.SetStatus(context.Background(), pump.ID, true, Trigger{By: TriggerManual})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, 1, f.queue.count())
	assert.Equal(t, 1, f.logs.count())
}

func TestSetStatusUnknownActuator(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.ctl.SetStatus(context.Background(), "missing", true, Trigger{By: TriggerManual})
	assert.True(t, errors.IsNotFound(err))
}

func TestFloatInterlockBlocksWaterOutputs(t *testing.T) {
	f := newFixture(t, true)
	f.snapshots.latest = &models.Snapshot{DeviceID: "dev-1", FloatSensor: f64(0)}
	pump := f.byType(t, models.ActuatorPump)

	_, err := f.ctl.SetStatus(context.Background(), pump.ID, true, Trigger{By: TriggerManual})
	assert.True(t, errors.IsConflict(err))
	assert.Equal(t, 0, f.queue.count())

	// The fan is not a water output; the interlock does not apply.
	fan := f.byType(t, models.ActuatorFan)
	res, err := f.ctl.SetStatus(context.Background(), fan.ID, true, Trigger{By: TriggerManual})
	require.NoError(t, err)
	assert.True(t, res.Changed)

	// Turning the pump off is always allowed.
	res, err = f.ctl.SetStatus(context.Background(), pump.ID, false, Trigger{By: TriggerManual})
	require.NoError(t, err)
	assert.False(t, res.Changed) // already off
}

func TestAutoControlTurnsPumpOnWhenDry(t *testing.T) {
	f := newFixture(t, false)
	f.readings.latest = &models.Reading{DeviceID: "dev-1", Moisture: f64(40), Timestamp: time.Now().UTC()}

	res, err := f.ctl.RunAutomaticControl(context.Background(), "test")
	require.NoError(t, err)
	require.Len(t, res.Changed, 2) // pump and solenoid valve

	pump := f.byType(t, models.ActuatorPump)
	assert.True(t, pump.Status)
	assert.Equal(t, 2, f.queue.count())
	assert.Equal(t, TriggerAutomatic, f.logs.entries[0].TriggeredBy)
	assert.Equal(t, "dev-1", f.queue.target)
}

func TestAutoControlDeadbandHoldsState(t *testing.T) {
	f := newFixture(t, false)
	f.readings.latest = &models.Reading{DeviceID: "dev-1", Moisture: f64(60), Timestamp: time.Now().UTC()}

	res, err := f.ctl.RunAutomaticControl(context.Background(), "test")
	require.NoError(t, err)
	assert.Empty(t, res.Changed)
	assert.Equal(t, 0, f.queue.count())
}

func TestAutoControlTurnsPumpOffWhenWet(t *testing.T) {
	f := newFixture(t, false)
	f.readings.latest = &models.Reading{DeviceID: "dev-1", Moisture: f64(40), Timestamp: time.Now().UTC()}
	_, err := f.ctl.RunAutomaticControl(context.Background(), "test")
	require.NoError(t, err)

	f.readings.latest = &models.Reading{DeviceID: "dev-1", Moisture: f64(75), Timestamp: time.Now().UTC()}
	res, err := f.ctl.RunAutomaticControl(context.Background(), "test")
	require.NoError(t, err)
	require.Len(t, res.Changed, 2)

	pump := f.byType(t, models.ActuatorPump)
	assert.False(t, pump.Status)
}

func TestAutoControlFanFollowsTemperature(t *testing.T) {
	f := newFixture(t, false)
	f.readings.latest = &models.Reading{DeviceID: "dev-1", Temperature: f64(36), Timestamp: time.Now().UTC()}

	_, err := f.ctl.RunAutomaticControl(context.Background(), "test")
	require.NoError(t, err)
	assert.True(t, f.byType(t, models.ActuatorFan).Status)

	f.readings.latest = &models.Reading{DeviceID: "dev-1", Temperature: f64(20), Timestamp: time.Now().UTC()}
	_, err = f.ctl.RunAutomaticControl(context.Background(), "test")
	require.NoError(t, err)
	assert.False(t, f.byType(t, models.ActuatorFan).Status)
}

func TestAutoControlSkipsManualActuators(t *testing.T) {
	f := newFixture(t, false)
	pump := f.byType(t, models.ActuatorPump)
	_, err := f.ctl.SetMode(context.Background(), pump.ID, models.ModeManual, Trigger{By: TriggerManual})
	require.NoError(t, err)

	f.readings.latest = &models.Reading{DeviceID: "dev-1", Moisture: f64(40), Timestamp: time.Now().UTC()}
	res, err := f.ctl.RunAutomaticControl(context.Background(), "test")
	require.NoError(t, err)

	// Only the solenoid valve reacts; the pump is under manual control.
	require.Len(t, res.Changed, 1)
	assert.Equal(t, models.ActuatorSolenoid, res.Changed[0].Type)
	assert.False(t, f.byType(t, models.ActuatorPump).Status)
}

func TestAutoControlNoReadingDoesNothing(t *testing.T) {
	f := newFixture(t, false)

	res, err := f.ctl.RunAutomaticControl(context.Background(), "test")
	require.NoError(t, err)
	assert.Empty(t, res.Changed)
	assert.Nil(t, res.Sample)
}

func TestSetModeToAutoRunsPolicyImmediately(t *testing.T) {
	f := newFixture(t, false)
	pump := f.byType(t, models.ActuatorPump)
	_, err := f.ctl.SetMode(context.Background(), pump.ID, models.ModeManual, Trigger{By: TriggerManual})
	require.NoError(t, err)

	f.readings.latest = &models.Reading{DeviceID: "dev-1", Moisture: f64(40), Timestamp: time.Now().UTC()}

	_, err = f.ctl.SetMode(context.Background(), pump.ID, models.ModeAuto, Trigger{By: TriggerManual})
	require.NoError(t, err)
	assert.True(t, f.byType(t, models.ActuatorPump).Status)
}

func TestSetModeRejectsUnknownMode(t *testing.T) {
	f := newFixture(t, false)
	pump := f.byType(t, models.ActuatorPump)

	_, err := f.ctl.SetMode(context.Background(), pump.ID, "turbo", Trigger{By: TriggerManual})
	assert.True(t, errors.IsValidation(err))
}

func TestApplyCommandAckRecordsFailure(t *testing.T) {
	f := newFixture(t, false)
	f.snapshots.latest = &models.Snapshot{DeviceID: "dev-1"}
	pump := f.byType(t, models.ActuatorPump)

	res, err := f.ctl.SetStatus(context.Background(), pump.ID, true, Trigger{By: TriggerManual})
	require.NoError(t, err)
	require.True(t, res.Actuator.DeviceAck)

	f.ctl.ApplyCommandAck(context.Background(), &models.DeviceCommand{
		CommandType:     "actuator",
		Payload:         models.CommandPayload{Actuator: pump.Name, Desired: "on"},
		Status:          models.CommandFailed,
		ResponsePayload: models.JSON{"message": "pump jammed"},
	})

	updated := f.byType(t, models.ActuatorPump)
	assert.True(t, updated.Status) // logical state stays
	assert.False(t, updated.DeviceAck)
	assert.Equal(t, "pump jammed", updated.DeviceAckMessage)
}

func TestApplyCommandAckClearsFailureOnSuccess(t *testing.T) {
	f := newFixture(t, false)
	pump := f.byType(t, models.ActuatorPump)
	require.NoError(t, f.actuators.SetDeviceAck(context.Background(), pump.ID, false, "earlier failure"))

	f.ctl.ApplyCommandAck(context.Background(), &models.DeviceCommand{
		CommandType: "actuator",
		Payload:     models.CommandPayload{Actuator: pump.Name, Desired: "on"},
		Status:      models.CommandCompleted,
	})

	updated := f.byType(t, models.ActuatorPump)
	assert.True(t, updated.DeviceAck)
	assert.Empty(t, updated.DeviceAckMessage)
}
