package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"sensors-api/internal/domain"
)

// MemorySensorsRepo serves the sensors table when DB is disabled or unreachable.
type MemorySensorsRepo struct {
	mu            sync.RWMutex
	sensors       map[int64]domain.SensorRecord
	nextID        int64
	storeReadings bool
	now           func() time.Time
}

func NewMemorySensorsRepo(storeReadings bool) *MemorySensorsRepo {
	return &MemorySensorsRepo{
		sensors:       map[int64]domain.SensorRecord{},
		nextID:        1,
		storeReadings: storeReadings,
		now:           time.Now,
	}
}

func (r *MemorySensorsRepo) ListSensors(_ context.Context) ([]*domain.SensorRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.SensorRecord, 0, len(r.sensors))
	for _, s := range r.sensors {
		rec := s
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemorySensorsRepo) CreateSensor(_ context.Context, in *domain.NewSensor) (*domain.SensorRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now().UTC()
	}
	lastUpdated := in.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = createdAt
	}

	rec := domain.SensorRecord{
		ID:          r.nextID,
		Name:        in.Name,
		Type:        in.Type,
		Location:    in.Location,
		LastUpdated: lastUpdated,
		CreatedAt:   createdAt,
	}
	if r.storeReadings {
		rec.Value = copyPtr(in.Value)
		rec.Unit = copyPtr(in.Unit)
		rec.Status = copyPtr(in.Status)
	}
	r.sensors[rec.ID] = rec
	r.nextID++

	out := rec
	return &out, nil
}

func (r *MemorySensorsRepo) GetSensor(_ context.Context, id int64) (*domain.SensorRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.sensors[id]
	if !ok {
		return nil, domain.SensorNotFound(id)
	}
	return &rec, nil
}

func (r *MemorySensorsRepo) GetSensorByLocation(_ context.Context, location string) (*domain.SensorRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *domain.SensorRecord
	for _, s := range r.sensors {
		if s.Location != location {
			continue
		}
		if found == nil || s.ID < found.ID {
			rec := s
			found = &rec
		}
	}
	return found, nil
}

func (r *MemorySensorsRepo) UpdateSensor(_ context.Context, id int64, patch domain.SensorPatch) (*domain.SensorRecord, error) {
	if !r.storeReadings {
		patch = patch.WithoutReadings()
	}
	if patch.IsEmpty() {
		return nil, domain.NewStoreError("update", domain.ErrNoFieldsToUpdate)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sensors[id]
	if !ok {
		return nil, domain.SensorNotFound(id)
	}
	patch.Apply(&rec)
	rec.LastUpdated = r.now().UTC()
	r.sensors[id] = rec

	out := rec
	return &out, nil
}

func (r *MemorySensorsRepo) DeleteSensor(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sensors[id]; !ok {
		return false, domain.SensorNotFound(id)
	}
	delete(r.sensors, id)
	return true, nil
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
