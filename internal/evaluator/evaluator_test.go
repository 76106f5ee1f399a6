// FilePath: internal/evaluator/evaluator_test.go
package evaluator

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

type fakeAlertRepo struct {
	mu      sync.Mutex
	alerts  []*models.Alert
	failOn  map[string]bool
	created int
}

func (f *fakeAlertRepo) BeginTx(ctx context.Context) (database.Transaction, error) { return nil, nil }

func (f *fakeAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[alert.Type] {
		return errors.NewDatabaseError("forced failure", nil)
	}
	alert.ID = "alr_test"
	f.alerts = append(f.alerts, alert)
	f.created++
	return nil
}

func (f *fakeAlertRepo) Get(ctx context.Context, id string) (*models.Alert, error) {
	return nil, errors.NewNotFoundError("not found", nil)
}

func (f *fakeAlertRepo) LatestUnresolved(ctx context.Context, alertType, deviceID string) (*models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.alerts) - 1; i >= 0; i-- {
		a := f.alerts[i]
		if a.Type == alertType && a.DeviceID == deviceID && !a.IsResolved {
			return a, nil
		}
	}
	return nil, errors.NewNotFoundError("no unresolved alert", nil)
}

func (f *fakeAlertRepo) Resolve(ctx context.Context, id string, at time.Time) error { return nil }
func (f *fakeAlertRepo) ResolveByDevice(ctx context.Context, deviceID string, at time.Time) (int64, error) {
	return 0, nil
}
func (f *fakeAlertRepo) MarkRead(ctx context.Context, id string) error { return nil }
func (f *fakeAlertRepo) List(ctx context.Context, filters models.AlertFilters, offset, limit int) ([]*models.Alert, error) {
	return f.alerts, nil
}
func (f *fakeAlertRepo) DeleteResolvedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakeSettingsRepo struct {
	thresholds models.Thresholds
}

func (f *fakeSettingsRepo) BeginTx(ctx context.Context) (database.Transaction, error) {
	return nil, nil
}
func (f *fakeSettingsRepo) GetThresholds(ctx context.Context) (models.Thresholds, error) {
	return f.thresholds, nil
}
func (f *fakeSettingsRepo) UpdateThresholds(ctx context.Context, thresholds models.Thresholds) error {
	f.thresholds = thresholds
	return nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []string
	data   []interface{}
}

func (c *capturePublisher) Publish(ctx context.Context, event string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	c.data = append(c.data, data)
}
func (c *capturePublisher) Close() error { return nil }

func f64(v float64) *float64 { return &v }

func newTestEvaluator(alerts *fakeAlertRepo) (*Evaluator, *capturePublisher) {
	pub := &capturePublisher{}
	settings := &fakeSettingsRepo{thresholds: models.DefaultThresholds()}
	return New(alerts, settings, pub, 5*time.Minute, 15*time.Minute), pub
}

func reading(deviceID string) *models.Reading {
	return &models.Reading{
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
	}
}

func TestEvaluateRaisesCriticalOnTemperatureExcess(t *testing.T) {
	repo := &fakeAlertRepo{}
	eval, pub := newTestEvaluator(repo)

	r := reading("dev-1")
	r.Temperature = f64(31) // critical default is 30

	created, err := eval.Evaluate(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, AlertTemperatureHigh, created[0].Type)
	assert.Equal(t, models.SeverityCritical, created[0].Severity)
	assert.Equal(t, "dev-1", created[0].DeviceID)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "alert:new", pub.events[0])
}

func TestEvaluateWarningTierSeverities(t *testing.T) {
	repo := &fakeAlertRepo{}
	eval, _ := newTestEvaluator(repo)

	r := reading("dev-1")
	r.Temperature = f64(26)  // warning 25 -> high
	r.BatteryLevel = f64(15) // warning 20 -> medium (deficiency metric)

	created, err := eval.Evaluate(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, created, 2)

	bySeverity := map[string]models.AlertSeverity{}
	for _, a := range created {
		bySeverity[a.Type] = a.Severity
	}
	assert.Equal(t, models.SeverityHigh, bySeverity[AlertTemperatureHigh])
	assert.Equal(t, models.SeverityMedium, bySeverity[AlertBatteryLow])
}

func TestEvaluateMoistureLowIsCriticalAtFloor(t *testing.T) {
	repo := &fakeAlertRepo{}
	eval, _ := newTestEvaluator(repo)

	r := reading("dev-1")
	r.Moisture = f64(18) // critical default 20

	created, err := eval.Evaluate(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, AlertMoistureLow, created[0].Type)
	assert.Equal(t, models.SeverityCritical, created[0].Severity)
}

func TestEvaluateInBandValuesRaiseNothing(t *testing.T) {
	repo := &fakeAlertRepo{}
	eval, pub := newTestEvaluator(repo)

	r := reading("dev-1")
	r.Temperature = f64(22)
	r.Humidity = f64(50)
	r.Moisture = f64(55)
	r.BatteryLevel = f64(90)

	created, err := eval.Evaluate(context.Background(), r)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Empty(t, pub.events)
}

func TestEvaluateSkipsOfflineReplay(t *testing.T) {
	repo := &fakeAlertRepo{}
	eval, _ := newTestEvaluator(repo)

	r := reading("dev-1")
	r.Temperature = f64(40)
	r.IsOfflineData = true

	created, err := eval.Evaluate(context.Background(), r)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestEvaluateSkipsStaleReading(t *testing.T) {
	repo := &fakeAlertRepo{}
	eval, _ := newTestEvaluator(repo)

	r := reading("dev-1")
	r.Temperature = f64(40)
	r.Timestamp = time.Now().UTC().Add(-20 * time.Minute)

	created, err := eval.Evaluate(context.Background(), r)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestEvaluateDebouncesRepeatedViolations(t *testing.T) {
	repo := &fakeAlertRepo{}
	eval, _ := newTestEvaluator(repo)

	r := reading("dev-1")
	r.Temperature = f64(31)

	created, err := eval.Evaluate(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, created, 1)

	// Same violation right after: suppressed by the open-alert debounce.
	created, err = eval.Evaluate(context.Background(), readingWithTemp("dev-1", 32))
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Equal(t, 1, repo.created)

	// A different device debounces independently.
	created, err = eval.Evaluate(context.Background(), readingWithTemp("dev-2", 32))
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestEvaluateDebounceExpires(t *testing.T) {
	repo := &fakeAlertRepo{}
	eval, _ := newTestEvaluator(repo)

	old := &models.Alert{
		Type:      AlertTemperatureHigh,
		DeviceID:  "dev-1",
		CreatedAt: time.Now().UTC().Add(-10 * time.Minute),
	}
	repo.alerts = append(repo.alerts, old)

	created, err := eval.Evaluate(context.Background(), readingWithTemp("dev-1", 31))
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestEvaluateToleratesPerAlertFailure(t *testing.T) {
	repo := &fakeAlertRepo{failOn: map[string]bool{AlertTemperatureHigh: true}}
	eval, _ := newTestEvaluator(repo)

	r := reading("dev-1")
	r.Temperature = f64(31)
	r.Moisture = f64(18)

	created, err := eval.Evaluate(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, AlertMoistureLow, created[0].Type)
}

func TestEvaluateWaterLevelSentinel(t *testing.T) {
	repo := &fakeAlertRepo{}
	pub := &capturePublisher{}
	thresholds := models.DefaultThresholds()
	thresholds.WaterLevel = models.SentinelBand{Critical: f64(0)}
	settings := &fakeSettingsRepo{thresholds: thresholds}
	eval := New(repo, settings, pub, 5*time.Minute, 15*time.Minute)

	r := reading("dev-1")
	r.WaterLevel = f64(0)

	created, err := eval.Evaluate(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, AlertWaterLevelLow, created[0].Type)
	assert.Equal(t, models.SeverityCritical, created[0].Severity)

	// Non-sentinel values never match.
	r2 := reading("dev-2")
	r2.WaterLevel = f64(12)
	created, err = eval.Evaluate(context.Background(), r2)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestEvaluatePHRange(t *testing.T) {
	repo := &fakeAlertRepo{}
	pub := &capturePublisher{}
	thresholds := models.DefaultThresholds()
	thresholds.PH = models.RangeBand{
		MinWarning: f64(5.5), MinCritical: f64(4.5),
		MaxWarning: f64(7.5), MaxCritical: f64(8.5),
	}
	settings := &fakeSettingsRepo{thresholds: thresholds}
	eval := New(repo, settings, pub, 5*time.Minute, 15*time.Minute)

	r := reading("dev-1")
	r.PH = f64(4.2)
	created, err := eval.Evaluate(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, models.SeverityCritical, created[0].Severity)

	r2 := reading("dev-2")
	r2.PH = f64(7.8)
	created, err = eval.Evaluate(context.Background(), r2)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, models.SeverityHigh, created[0].Severity)
}

func TestEvaluateNPKDeficiencyWarningIsMedium(t *testing.T) {
	repo := &fakeAlertRepo{}
	pub := &capturePublisher{}
	thresholds := models.DefaultThresholds()
	thresholds.Nitrogen = models.RangeBand{MinWarning: f64(40), MinCritical: f64(20)}
	thresholds.Potassium = models.RangeBand{MaxWarning: f64(300), MaxCritical: f64(500)}
	settings := &fakeSettingsRepo{thresholds: thresholds}
	eval := New(repo, settings, pub, 5*time.Minute, 15*time.Minute)

	// Low nitrogen is a deficiency: warning tier is medium, not high.
	r := reading("dev-1")
	r.Nitrogen = f64(30)
	created, err := eval.Evaluate(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, AlertNitrogenRange, created[0].Type)
	assert.Equal(t, models.SeverityMedium, created[0].Severity)

	// Excess potassium keeps the high warning tier.
	r2 := reading("dev-2")
	r2.Potassium = f64(350)
	created, err = eval.Evaluate(context.Background(), r2)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, AlertPotassiumRange, created[0].Type)
	assert.Equal(t, models.SeverityHigh, created[0].Severity)
}

func TestEvaluateLowTemperatureBand(t *testing.T) {
	repo := &fakeAlertRepo{}
	pub := &capturePublisher{}
	thresholds := models.DefaultThresholds()
	thresholds.Temperature.LowWarning = f64(10)
	thresholds.Temperature.LowCritical = f64(5)
	settings := &fakeSettingsRepo{thresholds: thresholds}
	eval := New(repo, settings, pub, 5*time.Minute, 15*time.Minute)

	created, err := eval.Evaluate(context.Background(), readingWithTemp("dev-1", 7))
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, AlertTemperatureLow, created[0].Type)
	assert.Equal(t, models.SeverityMedium, created[0].Severity)

	created, err = eval.Evaluate(context.Background(), readingWithTemp("dev-2", 3))
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, AlertTemperatureLow, created[0].Type)
	assert.Equal(t, models.SeverityCritical, created[0].Severity)
}

func TestEvaluateExactThresholdValueDoesNotAlert(t *testing.T) {
	repo := &fakeAlertRepo{}
	eval, _ := newTestEvaluator(repo)

	// Bounds are strict: sitting exactly on a threshold is still in band.
	r := reading("dev-1")
	r.Temperature = f64(25) // warning is 25
	r.Moisture = f64(30)    // warning is 30

	created, err := eval.Evaluate(context.Background(), r)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func readingWithTemp(deviceID string, temp float64) *models.Reading {
	r := reading(deviceID)
	r.Temperature = f64(temp)
	return r
}
