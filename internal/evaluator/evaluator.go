// FilePath: internal/evaluator/evaluator.go
package evaluator

import (
	"context"
	"fmt"
	"time"

	nuts "github.com/vaudience/go-nuts"
	"github.com/vermilinks/agrihub/internal/errors"
	"github.com/vermilinks/agrihub/internal/events"
	"github.com/vermilinks/agrihub/internal/models"
	"github.com/vermilinks/agrihub/internal/repository"
)

// Alert types emitted by the evaluator. The (type, device) pair is the
// debounce key, so each rule maps to exactly one type.
const (
	AlertTemperatureHigh = "temperature_high"
	AlertTemperatureLow  = "temperature_low"
	AlertHumidityHigh    = "humidity_high"
	AlertHumidityLow     = "humidity_low"
	AlertECHigh          = "ec_high"
	AlertECLow           = "ec_low"
	AlertMoistureLow     = "moisture_low"
	AlertBatteryLow      = "battery_low"
	AlertPHOutOfRange    = "ph_out_of_range"
	AlertNitrogenRange   = "nitrogen_out_of_range"
	AlertPhosphorusRange = "phosphorus_out_of_range"
	AlertPotassiumRange  = "potassium_out_of_range"
	AlertWaterLevelLow   = "water_level_critical"
)

// Evaluator turns accepted readings into alerts by comparing each reported
// metric against the configured thresholds.
type Evaluator struct {
	alerts    repository.AlertRepository
	settings  repository.SettingsRepository
	publisher events.Publisher

	debounce    time.Duration
	staleMaxAge time.Duration
}

func New(
	alerts repository.AlertRepository,
	settings repository.SettingsRepository,
	publisher events.Publisher,
	debounce, staleMaxAge time.Duration,
) *Evaluator {
	return &Evaluator{
		alerts:      alerts,
		settings:    settings,
		publisher:   publisher,
		debounce:    debounce,
		staleMaxAge: staleMaxAge,
	}
}

type violation struct {
	alertType string
	severity  models.AlertSeverity
	message   string
	threshold models.JSON
}

// Evaluate checks one reading against the active thresholds and persists an
// alert per violated rule. Replayed offline data and stale readings are
// skipped entirely: alerting on the past would only page operators about
// conditions that may have already cleared.
func (e *Evaluator) Evaluate(ctx context.Context, reading *models.Reading) ([]*models.Alert, error) {
	if reading.IsOfflineData {
		return nil, nil
	}
	if age := time.Since(reading.Timestamp); age > e.staleMaxAge {
		nuts.L.Debugf("[Evaluator] Skipping stale reading from %s (%v old)", reading.DeviceID, age)
		return nil, nil
	}

	thresholds, err := e.settings.GetThresholds(ctx)
	if err != nil {
		return nil, err
	}

	created := []*models.Alert{}
	for _, v := range e.violations(reading, thresholds) {
		alert, err := e.raise(ctx, reading, v)
		if err != nil {
			nuts.L.Errorf("[Evaluator] Failed to raise %s for %s: %v", v.alertType, reading.DeviceID, err)
			continue
		}
		if alert != nil {
			created = append(created, alert)
		}
	}

	if len(created) > 0 {
		e.publisher.Publish(ctx, events.EventAlertNew, created)
	}
	return created, nil
}

// raise persists one alert unless an open alert of the same type for the
// same device was created within the debounce window.
func (e *Evaluator) raise(ctx context.Context, reading *models.Reading, v violation) (*models.Alert, error) {
	existing, err := e.alerts.LatestUnresolved(ctx, v.alertType, reading.DeviceID)
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}
	if existing != nil && time.Since(existing.CreatedAt) < e.debounce {
		return nil, nil
	}

	now := time.Now().UTC()
	alert := &models.Alert{
		Type:      v.alertType,
		Severity:  v.severity,
		Message:   v.message,
		DeviceID:  reading.DeviceID,
		Threshold: v.threshold,
		Snapshot:  metricSnapshot(reading),
		Status:    models.AlertNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}
	nuts.L.Infof("[Evaluator] Raised %s (%s) for device %s", v.alertType, v.severity, reading.DeviceID)
	return alert, nil
}

func (e *Evaluator) violations(r *models.Reading, t models.Thresholds) []violation {
	out := []violation{}

	if v := checkHigh(r.Temperature, t.Temperature, AlertTemperatureHigh, "Temperature", "°C"); v != nil {
		out = append(out, *v)
	} else if v := checkLow(r.Temperature, lowSide(t.Temperature), AlertTemperatureLow, "Temperature", "°C"); v != nil {
		out = append(out, *v)
	}
	if v := checkHigh(r.Humidity, t.Humidity, AlertHumidityHigh, "Humidity", "%"); v != nil {
		out = append(out, *v)
	} else if v := checkLow(r.Humidity, lowSide(t.Humidity), AlertHumidityLow, "Humidity", "%"); v != nil {
		out = append(out, *v)
	}
	if v := checkHigh(r.EC, t.EC, AlertECHigh, "EC", " mS/cm"); v != nil {
		out = append(out, *v)
	} else if v := checkLow(r.EC, lowSide(t.EC), AlertECLow, "EC", " mS/cm"); v != nil {
		out = append(out, *v)
	}
	if v := checkLow(r.Moisture, t.Moisture, AlertMoistureLow, "Soil moisture", "%"); v != nil {
		out = append(out, *v)
	}
	if v := checkLow(r.BatteryLevel, t.BatteryLevel, AlertBatteryLow, "Battery level", "%"); v != nil {
		out = append(out, *v)
	}
	if v := checkRange(r.PH, t.PH, AlertPHOutOfRange, "pH", "", models.SeverityHigh); v != nil {
		out = append(out, *v)
	}
	if v := checkRange(r.Nitrogen, t.Nitrogen, AlertNitrogenRange, "Nitrogen", " mg/kg", models.SeverityMedium); v != nil {
		out = append(out, *v)
	}
	if v := checkRange(r.Phosphorus, t.Phosphorus, AlertPhosphorusRange, "Phosphorus", " mg/kg", models.SeverityMedium); v != nil {
		out = append(out, *v)
	}
	if v := checkRange(r.Potassium, t.Potassium, AlertPotassiumRange, "Potassium", " mg/kg", models.SeverityMedium); v != nil {
		out = append(out, *v)
	}
	if v := checkSentinel(r.WaterLevel, t.WaterLevel, AlertWaterLevelLow, "Water level"); v != nil {
		out = append(out, *v)
	}
	return out
}

// lowSide projects a band's lower bounds into floor form so the deficiency
// check can evaluate them.
func lowSide(b models.Band) models.Band {
	return models.Band{Warning: b.LowWarning, Critical: b.LowCritical}
}

// checkHigh handles the excess side of a band: crossing the warning bound is
// high severity, crossing the critical bound is critical. Bounds are strict;
// a value sitting exactly on a threshold does not alert.
func checkHigh(value *float64, band models.Band, alertType, label, unit string) *violation {
	if value == nil {
		return nil
	}
	threshold := models.JSON{"warning": band.Warning, "critical": band.Critical}

	if band.Critical != nil && *value > *band.Critical {
		return &violation{
			alertType: alertType,
			severity:  models.SeverityCritical,
			message:   fmt.Sprintf("%s %.1f%s is above critical threshold %.1f%s", label, *value, unit, *band.Critical, unit),
			threshold: threshold,
		}
	}
	if band.Warning != nil && *value > *band.Warning {
		return &violation{
			alertType: alertType,
			severity:  models.SeverityHigh,
			message:   fmt.Sprintf("%s %.1f%s is above warning threshold %.1f%s", label, *value, unit, *band.Warning, unit),
			threshold: threshold,
		}
	}
	return nil
}

// checkLow handles deficiency-type metrics: the bounds are floors, and the
// warning tier is medium severity rather than high.
func checkLow(value *float64, band models.Band, alertType, label, unit string) *violation {
	if value == nil {
		return nil
	}
	threshold := models.JSON{"warning": band.Warning, "critical": band.Critical}

	if band.Critical != nil && *value < *band.Critical {
		return &violation{
			alertType: alertType,
			severity:  models.SeverityCritical,
			message:   fmt.Sprintf("%s %.1f%s is below critical threshold %.1f%s", label, *value, unit, *band.Critical, unit),
			threshold: threshold,
		}
	}
	if band.Warning != nil && *value < *band.Warning {
		return &violation{
			alertType: alertType,
			severity:  models.SeverityMedium,
			message:   fmt.Sprintf("%s %.1f%s is below warning threshold %.1f%s", label, *value, unit, *band.Warning, unit),
			threshold: threshold,
		}
	}
	return nil
}

// checkRange handles band metrics where both directions are bad. The min
// warning tier carries a caller-chosen severity: a deficiency (low NPK) is
// medium, while pH drift is high in either direction.
func checkRange(value *float64, band models.RangeBand, alertType, label, unit string, minWarnSeverity models.AlertSeverity) *violation {
	if value == nil {
		return nil
	}
	threshold := models.JSON{
		"minWarning": band.MinWarning, "minCritical": band.MinCritical,
		"maxWarning": band.MaxWarning, "maxCritical": band.MaxCritical,
	}

	if band.MinCritical != nil && *value < *band.MinCritical {
		return &violation{
			alertType: alertType,
			severity:  models.SeverityCritical,
			message:   fmt.Sprintf("%s %.1f%s is below critical minimum %.1f%s", label, *value, unit, *band.MinCritical, unit),
			threshold: threshold,
		}
	}
	if band.MinWarning != nil && *value < *band.MinWarning {
		return &violation{
			alertType: alertType,
			severity:  minWarnSeverity,
			message:   fmt.Sprintf("%s %.1f%s is below warning minimum %.1f%s", label, *value, unit, *band.MinWarning, unit),
			threshold: threshold,
		}
	}
	if band.MaxCritical != nil && *value > *band.MaxCritical {
		return &violation{
			alertType: alertType,
			severity:  models.SeverityCritical,
			message:   fmt.Sprintf("%s %.1f%s is above critical maximum %.1f%s", label, *value, unit, *band.MaxCritical, unit),
			threshold: threshold,
		}
	}
	if band.MaxWarning != nil && *value > *band.MaxWarning {
		return &violation{
			alertType: alertType,
			severity:  models.SeverityHigh,
			message:   fmt.Sprintf("%s %.1f%s is above warning maximum %.1f%s", label, *value, unit, *band.MaxWarning, unit),
			threshold: threshold,
		}
	}
	return nil
}

// checkSentinel matches a discrete sentinel value exactly; the float switch
// reports "no water" as a specific level rather than a continuous range.
func checkSentinel(value *float64, band models.SentinelBand, alertType, label string) *violation {
	if value == nil || band.Critical == nil {
		return nil
	}
	if *value != *band.Critical {
		return nil
	}
	return &violation{
		alertType: alertType,
		severity:  models.SeverityCritical,
		message:   fmt.Sprintf("%s reports empty reservoir (sentinel %.0f)", label, *band.Critical),
		threshold: models.JSON{"critical": band.Critical},
	}
}

// metricSnapshot captures the reading's reported metrics for the alert row,
// so the alert stays meaningful after the reading ages out of retention.
func metricSnapshot(r *models.Reading) models.JSON {
	snap := models.JSON{"timestamp": r.Timestamp}
	set := func(key string, v *float64) {
		if v != nil {
			snap[key] = *v
		}
	}
	set("temperature", r.Temperature)
	set("humidity", r.Humidity)
	set("moisture", r.Moisture)
	set("ph", r.PH)
	set("ec", r.EC)
	set("nitrogen", r.Nitrogen)
	set("phosphorus", r.Phosphorus)
	set("potassium", r.Potassium)
	set("waterLevel", r.WaterLevel)
	set("floatSensor", r.FloatSensor)
	set("batteryLevel", r.BatteryLevel)
	return snap
}
