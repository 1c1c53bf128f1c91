package repository

import (
	"context"

	"sensors-api/internal/domain"
)

// SensorsRepository is the record store gateway for sensor rows.
// Every method runs as one transaction. Failures are *domain.StoreError,
// missing ids are *domain.NotFoundError.
type SensorsRepository interface {
	// ListSensors returns all rows ordered by id ascending.
	ListSensors(ctx context.Context) ([]*domain.SensorRecord, error)

	// CreateSensor inserts a row; the store assigns the id.
	CreateSensor(ctx context.Context, in *domain.NewSensor) (*domain.SensorRecord, error)

	GetSensor(ctx context.Context, id int64) (*domain.SensorRecord, error)

	// GetSensorByLocation returns the lowest-id row at location, or nil when none matches.
	GetSensorByLocation(ctx context.Context, location string) (*domain.SensorRecord, error)

	// UpdateSensor writes only the present patch fields and refreshes last_updated.
	// An empty patch fails with a StoreError wrapping domain.ErrNoFieldsToUpdate.
	UpdateSensor(ctx context.Context, id int64, patch domain.SensorPatch) (*domain.SensorRecord, error)

	DeleteSensor(ctx context.Context, id int64) (bool, error)
}

var (
	_ SensorsRepository = (*PostgresSensorsRepo)(nil)
	_ SensorsRepository = (*MemorySensorsRepo)(nil)
)
