package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"
	"unicode/utf8"

	"sensors-api/internal/domain"
	"sensors-api/internal/events"
	"sensors-api/internal/metrics"
	"sensors-api/internal/repository"
	"sensors-api/internal/telemetry"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultListConcurrency = 8
	publishTimeout         = 2 * time.Second
)

// SensorService merges stored sensors with live telemetry and validates writes.
type SensorService interface {
	ListSensors(ctx context.Context) ([]domain.SensorView, error)
	CreateSensor(ctx context.Context, raw map[string]any) (*domain.SensorView, error)
	GetSensorByID(ctx context.Context, id int64) (*domain.SensorView, error)
	UpdateSensor(ctx context.Context, id int64, raw map[string]any) (*domain.SensorView, error)
	DeleteSensor(ctx context.Context, id int64) (bool, error)

	// GetSensorByLocation returns nil, nil when no sensor is at location.
	GetSensorByLocation(ctx context.Context, location string) (*domain.LocationView, error)
}

// Options tunes a SensorService. Zero values are usable.
type Options struct {
	// ListConcurrency bounds telemetry fetches in flight during a listing.
	ListConcurrency int
	// DropReadings strips value, unit and status from updates, for stores that do not keep them.
	DropReadings bool
	Publisher    events.Publisher
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

type sensorService struct {
	repo            repository.SensorsRepository
	fetcher         telemetry.Fetcher
	publisher       events.Publisher
	metrics         *metrics.Metrics
	logger          *zap.Logger
	listConcurrency int
	dropReadings    bool
	now             func() time.Time
}

// NewSensorService creates a SensorService.
func NewSensorService(repo repository.SensorsRepository, fetcher telemetry.Fetcher, logger *zap.Logger, opts Options) SensorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ListConcurrency <= 0 {
		opts.ListConcurrency = defaultListConcurrency
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &sensorService{
		repo:            repo,
		fetcher:         fetcher,
		publisher:       opts.Publisher,
		metrics:         opts.Metrics,
		logger:          logger,
		listConcurrency: opts.ListConcurrency,
		dropReadings:    opts.DropReadings,
		now:             opts.Now,
	}
}

func (s *sensorService) ListSensors(ctx context.Context) ([]domain.SensorView, error) {
	recs, err := s.repo.ListSensors(ctx)
	if err != nil {
		return nil, err
	}

	// Fetches finish in any order; each writes only its own slot.
	samples := make([]domain.TelemetrySample, len(recs))
	var g errgroup.Group
	g.SetLimit(s.listConcurrency)
	for i, rec := range recs {
		i, rec := i, rec
		g.Go(func() error {
			samples[i] = s.fetcher.Fetch(ctx, rec.ID)
			return nil
		})
	}
	_ = g.Wait()

	views := make([]domain.SensorView, 0, len(recs))
	for i, rec := range recs {
		view, err := buildView(rec, samples[i])
		if err != nil {
			s.metrics.IncListSkipped()
			s.logger.Warn("Skipping sensor with invalid view",
				zap.Int64("sensor_id", rec.ID),
				zap.Error(err),
			)
			continue
		}
		views = append(views, *view)
	}
	return views, nil
}

func (s *sensorService) CreateSensor(ctx context.Context, raw map[string]any) (*domain.SensorView, error) {
	// 1. Validate
	in, err := ParseCreateInput(raw)
	if err != nil {
		return nil, err
	}

	// 2. Persist at the microsecond precision Postgres keeps
	now := s.now().UTC().Truncate(time.Microsecond)
	in.CreatedAt = now
	in.LastUpdated = now
	rec, err := s.repo.CreateSensor(ctx, in)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.SensorCreated, rec.ID)

	// 3. Merge
	return s.singleView("create", rec, s.fetcher.Fetch(ctx, rec.ID))
}

func (s *sensorService) GetSensorByID(ctx context.Context, id int64) (*domain.SensorView, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	rec, err := s.repo.GetSensor(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.singleView("get", rec, s.fetcher.Fetch(ctx, id))
}

func (s *sensorService) UpdateSensor(ctx context.Context, id int64, raw map[string]any) (*domain.SensorView, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	patch, err := ParsePatchInput(raw)
	if err != nil {
		return nil, err
	}
	if s.dropReadings {
		patch = patch.WithoutReadings()
		if patch.IsEmpty() {
			return nil, domain.NewValidationError("No fields to update")
		}
	}

	rec, err := s.repo.UpdateSensor(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.SensorUpdated, id)

	return s.singleView("update", rec, s.fetcher.Fetch(ctx, id))
}

func (s *sensorService) DeleteSensor(ctx context.Context, id int64) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}
	ok, err := s.repo.DeleteSensor(ctx, id)
	if err != nil {
		return false, err
	}
	s.publish(ctx, events.SensorDeleted, id)
	return ok, nil
}

func (s *sensorService) GetSensorByLocation(ctx context.Context, location string) (*domain.LocationView, error) {
	if location == "" {
		return nil, domain.NewValidationError("Invalid location")
	}

	rec, err := s.repo.GetSensorByLocation(ctx, location)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	view, err := s.singleView("get by location", rec, s.fetcher.Fetch(ctx, rec.ID))
	if err != nil {
		return nil, err
	}
	return &domain.LocationView{
		Value:       view.Value,
		Unit:        view.Unit,
		Status:      view.Status,
		Timestamp:   rec.CreatedAt,
		Description: domain.DescribeValue(view.Value),
		SensorID:    strconv.FormatInt(rec.ID, 10),
		SensorType:  rec.Type,
		Location:    rec.Location,
	}, nil
}

// singleView merges one record. A record that cannot form a valid view is a
// store fault on single reads.
func (s *sensorService) singleView(op string, rec *domain.SensorRecord, sample domain.TelemetrySample) (*domain.SensorView, error) {
	view, err := buildView(rec, sample)
	if err != nil {
		s.logger.Error("Stored sensor does not form a valid view",
			zap.Int64("sensor_id", rec.ID),
			zap.Error(err),
		)
		return nil, domain.NewStoreError(op, err)
	}
	return view, nil
}

// publish emits a change event. Failures are logged and never returned.
func (s *sensorService) publish(ctx context.Context, t events.EventType, id int64) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	evt := events.NewEvent(t, id, s.now())
	if err := s.publisher.Publish(pctx, evt); err != nil {
		s.logger.Warn("Failed to publish sensor event",
			zap.String("event_type", string(t)),
			zap.Int64("sensor_id", id),
			zap.Error(err),
		)
	}
}

func validateID(id int64) error {
	if id <= 0 {
		return domain.NewValidationError("Invalid sensor ID")
	}
	return nil
}

// buildView takes identity from the record and readings from telemetry only.
func buildView(rec *domain.SensorRecord, sample domain.TelemetrySample) (*domain.SensorView, error) {
	switch {
	case rec.ID <= 0:
		return nil, fmt.Errorf("%w: id %d", domain.ErrInvalidView, rec.ID)
	case !validLen(rec.Name, domain.NameMaxLen):
		return nil, fmt.Errorf("%w: name length", domain.ErrInvalidView)
	case !validLen(rec.Location, domain.LocationMaxLen):
		return nil, fmt.Errorf("%w: location length", domain.ErrInvalidView)
	case !rec.Type.Valid():
		return nil, fmt.Errorf("%w: type %q", domain.ErrInvalidView, rec.Type)
	}

	view := &domain.SensorView{
		ID:          rec.ID,
		Name:        rec.Name,
		Type:        rec.Type,
		Location:    rec.Location,
		LastUpdated: rec.LastUpdated,
		CreatedAt:   rec.CreatedAt,
	}
	if sample.Value != nil {
		if math.IsNaN(*sample.Value) || math.IsInf(*sample.Value, 0) {
			return nil, fmt.Errorf("%w: value not finite", domain.ErrInvalidView)
		}
		v := *sample.Value
		view.Value = &v
	}
	if sample.Unit != nil {
		if !validLen(*sample.Unit, domain.UnitMaxLen) {
			return nil, fmt.Errorf("%w: unit length", domain.ErrInvalidView)
		}
		u := *sample.Unit
		view.Unit = &u
	}
	if sample.Status != nil {
		if !sample.Status.Valid() {
			return nil, fmt.Errorf("%w: status %q", domain.ErrInvalidView, *sample.Status)
		}
		st := *sample.Status
		view.Status = &st
	}
	return view, nil
}

func validLen(s string, maxLen int) bool {
	n := utf8.RuneCountInString(s)
	return n >= 1 && n <= maxLen
}
