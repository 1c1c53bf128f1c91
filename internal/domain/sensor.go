package domain

import (
	"fmt"
	"time"
)

// Field limits shared by inbound validation and view validation.
const (
	NameMaxLen     = 100
	LocationMaxLen = 200
	UnitMaxLen     = 20
)

// SensorType is the closed set of sensor kinds.
type SensorType string

const (
	SensorTypeTemperature SensorType = "temperature"
	SensorTypeHumidity    SensorType = "humidity"
	SensorTypePressure    SensorType = "pressure"
	SensorTypeMotion      SensorType = "motion"
	SensorTypeLight       SensorType = "light"
)

var sensorTypes = map[SensorType]struct{}{
	SensorTypeTemperature: {},
	SensorTypeHumidity:    {},
	SensorTypePressure:    {},
	SensorTypeMotion:      {},
	SensorTypeLight:       {},
}

// ParseSensorType returns the canonical type for s.
func ParseSensorType(s string) (SensorType, error) {
	t := SensorType(s)
	if _, ok := sensorTypes[t]; !ok {
		return "", fmt.Errorf("unknown sensor type %q", s)
	}
	return t, nil
}

func (t SensorType) Valid() bool {
	_, ok := sensorTypes[t]
	return ok
}

// SensorStatus is the closed set of operational states reported by telemetry.
type SensorStatus string

const (
	SensorStatusActive      SensorStatus = "active"
	SensorStatusInactive    SensorStatus = "inactive"
	SensorStatusError       SensorStatus = "error"
	SensorStatusMaintenance SensorStatus = "maintenance"
)

var sensorStatuses = map[SensorStatus]struct{}{
	SensorStatusActive:      {},
	SensorStatusInactive:    {},
	SensorStatusError:       {},
	SensorStatusMaintenance: {},
}

// ParseSensorStatus returns the canonical status for s.
func ParseSensorStatus(s string) (SensorStatus, error) {
	st := SensorStatus(s)
	if _, ok := sensorStatuses[st]; !ok {
		return "", fmt.Errorf("unknown sensor status %q", s)
	}
	return st, nil
}

func (s SensorStatus) Valid() bool {
	_, ok := sensorStatuses[s]
	return ok
}

// SensorRecord is one persisted row of the sensors table.
// Value, Unit and Status are nil when the column is NULL or when the
// deployment does not keep readings in the table.
type SensorRecord struct {
	ID          int64
	Name        string
	Type        SensorType
	Location    string
	Value       *float64
	Unit        *string
	Status      *SensorStatus
	LastUpdated time.Time
	CreatedAt   time.Time
}

// NewSensor is a validated creation request handed to the store.
type NewSensor struct {
	Name        string
	Type        SensorType
	Location    string
	Unit        *string
	Value       *float64
	Status      *SensorStatus
	CreatedAt   time.Time
	LastUpdated time.Time
}

// TelemetrySample is the latest reading from the monitoring service.
// The zero value means "no telemetry".
type TelemetrySample struct {
	Value  *float64
	Unit   *string
	Status *SensorStatus
}

// Empty reports whether no field was supplied.
func (t TelemetrySample) Empty() bool {
	return t.Value == nil && t.Unit == nil && t.Status == nil
}

// SensorView is the response shape: store identity plus telemetry readings.
type SensorView struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Type        SensorType    `json:"type"`
	Location    string        `json:"location"`
	Unit        *string       `json:"unit"`
	Value       *float64      `json:"value"`
	Status      *SensorStatus `json:"status"`
	LastUpdated time.Time     `json:"last_updated"`
	CreatedAt   time.Time     `json:"created_at"`
}

// LocationView is the by-location response consumed by the smart-home gateway.
type LocationView struct {
	Value       *float64      `json:"value"`
	Unit        *string       `json:"unit"`
	Status      *SensorStatus `json:"status"`
	Timestamp   time.Time     `json:"timestamp"`
	Description string        `json:"description"`
	SensorID    string        `json:"sensor_id"`
	SensorType  SensorType    `json:"sensor_type"`
	Location    string        `json:"location"`
}

// Description buckets. 20 and 25 belong to the "between" bucket.
const (
	DescriptionNone    = "description for value is None"
	DescriptionHigh    = "description for value > 25"
	DescriptionLow     = "description for value < 20"
	DescriptionBetween = "description for value between 20 and 25"
)

// DescribeValue maps a reading to its description bucket.
func DescribeValue(value *float64) string {
	switch {
	case value == nil:
		return DescriptionNone
	case *value > 25:
		return DescriptionHigh
	case *value < 20:
		return DescriptionLow
	default:
		return DescriptionBetween
	}
}
