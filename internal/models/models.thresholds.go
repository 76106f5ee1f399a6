// FilePath: internal/models/models.thresholds.go
package models

import (
	"database/sql/driver"
	"encoding/json"
)

// Band holds upper/lower warning and critical bounds for a single metric.
// Nil bounds are not evaluated.
type Band struct {
	Warning     *float64 `json:"warning,omitempty"`
	Critical    *float64 `json:"critical,omitempty"`
	LowWarning  *float64 `json:"lowWarning,omitempty"`
	LowCritical *float64 `json:"lowCritical,omitempty"`
}

// RangeBand holds independent min/max bounds, used for pH and NPK metrics.
type RangeBand struct {
	MinWarning  *float64 `json:"minWarning,omitempty"`
	MinCritical *float64 `json:"minCritical,omitempty"`
	MaxWarning  *float64 `json:"maxWarning,omitempty"`
	MaxCritical *float64 `json:"maxCritical,omitempty"`
}

// SentinelBand matches a discrete sentinel value (water level "no water").
type SentinelBand struct {
	Critical *float64 `json:"critical,omitempty"`
}

// Thresholds is the operator-configurable alert threshold set, one settings
// row system-wide.
type Thresholds struct {
	Temperature  Band         `json:"temperature"`
	Humidity     Band         `json:"humidity"`
	Moisture     Band         `json:"moisture"`
	PH           RangeBand    `json:"ph"`
	EC           Band         `json:"ec"`
	Nitrogen     RangeBand    `json:"nitrogen"`
	Phosphorus   RangeBand    `json:"phosphorus"`
	Potassium    RangeBand    `json:"potassium"`
	WaterLevel   SentinelBand `json:"waterLevel"`
	BatteryLevel Band         `json:"batteryLevel"`
}

// Value implements the driver.Valuer interface
func (t Thresholds) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements the sql.Scanner interface
func (t *Thresholds) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, t)
}

func f64(v float64) *float64 { return &v }

// DefaultThresholds mirrors the factory settings shipped with the hub.
// Metrics without factory bounds (pH, EC, NPK, water level) stay unset until
// an operator configures them.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Temperature:  Band{Warning: f64(25), Critical: f64(30)},
		Humidity:     Band{Warning: f64(70), Critical: f64(80)},
		Moisture:     Band{Warning: f64(30), Critical: f64(20)},
		BatteryLevel: Band{Warning: f64(20), Critical: f64(10)},
	}
}
