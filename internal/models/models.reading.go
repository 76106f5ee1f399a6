// FilePath: internal/models/models.reading.go
package models

import "time"

// Reading is one normalized set of sensor metrics for a device at a
// timestamp. Rows are immutable once persisted; later readings supersede
// them, they are never overwritten.
type Reading struct {
	ID              string     `json:"id" db:"id"`
	DeviceID        string     `json:"device_id" db:"device_id"`
	Temperature     *float64   `json:"temperature,omitempty" db:"temperature"`
	Humidity        *float64   `json:"humidity,omitempty" db:"humidity"`
	Moisture        *float64   `json:"moisture,omitempty" db:"moisture"`
	PH              *float64   `json:"ph,omitempty" db:"ph"`
	EC              *float64   `json:"ec,omitempty" db:"ec"`
	Nitrogen        *float64   `json:"nitrogen,omitempty" db:"nitrogen"`
	Phosphorus      *float64   `json:"phosphorus,omitempty" db:"phosphorus"`
	Potassium       *float64   `json:"potassium,omitempty" db:"potassium"`
	WaterLevel      *float64   `json:"water_level,omitempty" db:"water_level"`
	FloatSensor     *float64   `json:"float_sensor,omitempty" db:"float_sensor"`
	BatteryLevel    *float64   `json:"battery_level,omitempty" db:"battery_level"`
	SignalStrength  *float64   `json:"signal_strength,omitempty" db:"signal_strength"`
	Timestamp       time.Time  `json:"timestamp" db:"timestamp"`
	IsOfflineData   bool       `json:"is_offline_data" db:"is_offline_data"`
	Source          string     `json:"source" db:"source"`
	DedupeSignature string     `json:"-" db:"dedupe_signature"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// HasMetrics reports whether at least one numeric metric is set. Readings
// without any metric are ignored at the ingestion boundary.
func (r *Reading) HasMetrics() bool {
	for _, v := range []*float64{
		r.Temperature, r.Humidity, r.Moisture, r.PH, r.EC,
		r.Nitrogen, r.Phosphorus, r.Potassium,
		r.WaterLevel, r.FloatSensor, r.BatteryLevel, r.SignalStrength,
	} {
		if v != nil {
			return true
		}
	}
	return false
}

// Snapshot is the per-device "latest reading" row, upserted on every
// accepted reading so dashboards and the automatic control policy get O(1)
// access to current state.
type Snapshot struct {
	DeviceID       string    `json:"device_id" db:"device_id"`
	Temperature    *float64  `json:"temperature,omitempty" db:"temperature"`
	Humidity       *float64  `json:"humidity,omitempty" db:"humidity"`
	Moisture       *float64  `json:"moisture,omitempty" db:"moisture"`
	PH             *float64  `json:"ph,omitempty" db:"ph"`
	EC             *float64  `json:"ec,omitempty" db:"ec"`
	Nitrogen       *float64  `json:"nitrogen,omitempty" db:"nitrogen"`
	Phosphorus     *float64  `json:"phosphorus,omitempty" db:"phosphorus"`
	Potassium      *float64  `json:"potassium,omitempty" db:"potassium"`
	WaterLevel     *float64  `json:"water_level,omitempty" db:"water_level"`
	FloatSensor    *float64  `json:"float_sensor,omitempty" db:"float_sensor"`
	BatteryLevel   *float64  `json:"battery_level,omitempty" db:"battery_level"`
	SignalStrength *float64  `json:"signal_strength,omitempty" db:"signal_strength"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
