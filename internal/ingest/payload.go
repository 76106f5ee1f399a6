// FilePath: internal/ingest/payload.go
package ingest

import (
	"time"

	"github.com/vermilinks/agrihub/internal/models"
)

// TelemetryPayload is the wire form devices publish, both over MQTT and the
// HTTP ingest endpoint. Field names follow the device firmware's camelCase.
type TelemetryPayload struct {
	DeviceID       string   `json:"deviceId,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	Humidity       *float64 `json:"humidity,omitempty"`
	Moisture       *float64 `json:"moisture,omitempty"`
	PH             *float64 `json:"ph,omitempty"`
	EC             *float64 `json:"ec,omitempty"`
	Nitrogen       *float64 `json:"nitrogen,omitempty"`
	Phosphorus     *float64 `json:"phosphorus,omitempty"`
	Potassium      *float64 `json:"potassium,omitempty"`
	WaterLevel     *float64 `json:"waterLevel,omitempty"`
	FloatSensor    *float64 `json:"floatSensor,omitempty"`
	BatteryLevel   *float64 `json:"batteryLevel,omitempty"`
	SignalStrength *float64 `json:"signalStrength,omitempty"`
	Timestamp      *int64   `json:"timestamp,omitempty"` // epoch milliseconds
	IsOfflineData  bool     `json:"isOfflineData,omitempty"`
}

// ToReading normalizes the payload into a reading row. A missing timestamp
// means "now": cheap sensor firmware often has no clock worth trusting.
func (p *TelemetryPayload) ToReading(deviceID, source string) *models.Reading {
	ts := time.Now().UTC()
	if p.Timestamp != nil && *p.Timestamp > 0 {
		ts = time.UnixMilli(*p.Timestamp).UTC()
	}
	return &models.Reading{
		DeviceID:       deviceID,
		Temperature:    p.Temperature,
		Humidity:       p.Humidity,
		Moisture:       p.Moisture,
		PH:             p.PH,
		EC:             p.EC,
		Nitrogen:       p.Nitrogen,
		Phosphorus:     p.Phosphorus,
		Potassium:      p.Potassium,
		WaterLevel:     p.WaterLevel,
		FloatSensor:    p.FloatSensor,
		BatteryLevel:   p.BatteryLevel,
		SignalStrength: p.SignalStrength,
		Timestamp:      ts,
		IsOfflineData:  p.IsOfflineData,
		Source:         source,
	}
}
