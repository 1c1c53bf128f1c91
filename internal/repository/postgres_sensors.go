package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sensors-api/internal/domain"

	"go.uber.org/zap"
)

// SensorsTableDDL creates the sensors table. The reading columns exist in
// every profile; the slim profile just never touches them.
const SensorsTableDDL = `
	CREATE TABLE IF NOT EXISTS sensors (
		id           SERIAL PRIMARY KEY,
		name         VARCHAR(100) NOT NULL,
		type         VARCHAR(50)  NOT NULL,
		location     VARCHAR(200) NOT NULL,
		value        DOUBLE PRECISION,
		unit         VARCHAR(20),
		status       VARCHAR(20),
		last_updated TIMESTAMPTZ NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	)
`

const (
	fullColumns = "id, name, type, location, value, unit, status, last_updated, created_at"
	slimColumns = "id, name, type, location, last_updated, created_at"
)

type PostgresSensorsRepo struct {
	db            *sql.DB
	logger        *zap.Logger
	storeReadings bool
	timeout       time.Duration
	now           func() time.Time
}

// NewPostgresSensorsRepo builds the gateway. storeReadings selects the
// deployment profile: true keeps value/unit/status in the table.
func NewPostgresSensorsRepo(db *sql.DB, logger *zap.Logger, storeReadings bool) *PostgresSensorsRepo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresSensorsRepo{
		db:            db,
		logger:        logger,
		storeReadings: storeReadings,
		now:           time.Now,
	}
}

// SetTimeout bounds every operation, including the wait for a pooled connection.
func (r *PostgresSensorsRepo) SetTimeout(d time.Duration) {
	r.timeout = d
}

// EnsureSchema creates the sensors table when it is missing.
func (r *PostgresSensorsRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, SensorsTableDDL); err != nil {
		return domain.NewStoreError("ensure schema", err)
	}
	return nil
}

func (r *PostgresSensorsRepo) columns() string {
	if r.storeReadings {
		return fullColumns
	}
	return slimColumns
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresSensorsRepo) scanSensor(row rowScanner) (*domain.SensorRecord, error) {
	var (
		rec     domain.SensorRecord
		sensorT string
	)
	if !r.storeReadings {
		if err := row.Scan(&rec.ID, &rec.Name, &sensorT, &rec.Location, &rec.LastUpdated, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Type = domain.SensorType(sensorT)
		return &rec, nil
	}

	var (
		value  sql.NullFloat64
		unit   sql.NullString
		status sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.Name, &sensorT, &rec.Location, &value, &unit, &status, &rec.LastUpdated, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Type = domain.SensorType(sensorT)
	if value.Valid {
		v := value.Float64
		rec.Value = &v
	}
	if unit.Valid {
		u := unit.String
		rec.Unit = &u
	}
	if status.Valid {
		s := domain.SensorStatus(status.String)
		rec.Status = &s
	}
	return &rec, nil
}

// withTx runs fn in one transaction and rolls back on any failure. fn must
// use the ctx it is given so statements share the store timeout.
// Errors that are not already domain errors become StoreErrors.
func (r *PostgresSensorsRepo) withTx(ctx context.Context, op string, readOnly bool, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: readOnly})
	if err != nil {
		return domain.NewStoreError(op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, tx); err != nil {
		if domain.IsNotFound(err) || domain.IsStore(err) {
			return err
		}
		return domain.NewStoreError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.NewStoreError(op, err)
	}
	return nil
}

func (r *PostgresSensorsRepo) ListSensors(ctx context.Context) ([]*domain.SensorRecord, error) {
	out := []*domain.SensorRecord{}
	err := r.withTx(ctx, "list", true, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, "SELECT "+r.columns()+" FROM sensors ORDER BY id ASC")
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := r.scanSensor(rows)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresSensorsRepo) CreateSensor(ctx context.Context, in *domain.NewSensor) (*domain.SensorRecord, error) {
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now().UTC()
	}
	lastUpdated := in.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = createdAt
	}

	var (
		q    string
		args []any
	)
	if r.storeReadings {
		q = `INSERT INTO sensors (name, type, location, value, unit, status, last_updated, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING ` + fullColumns
		args = []any{in.Name, string(in.Type), in.Location, nullFloat(in.Value), nullString(in.Unit), nullStatus(in.Status), lastUpdated, createdAt}
	} else {
		q = `INSERT INTO sensors (name, type, location, last_updated, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING ` + slimColumns
		args = []any{in.Name, string(in.Type), in.Location, lastUpdated, createdAt}
	}

	var created *domain.SensorRecord
	err := r.withTx(ctx, "create", false, func(ctx context.Context, tx *sql.Tx) error {
		rec, err := r.scanSensor(tx.QueryRowContext(ctx, q, args...))
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewStoreError("create", errors.New("insert returned no row"))
		}
		if err != nil {
			return err
		}
		created = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Sensor created", zap.Int64("sensor_id", created.ID), zap.String("type", string(created.Type)))
	return created, nil
}

func (r *PostgresSensorsRepo) GetSensor(ctx context.Context, id int64) (*domain.SensorRecord, error) {
	var found *domain.SensorRecord
	err := r.withTx(ctx, "get", true, func(ctx context.Context, tx *sql.Tx) error {
		rec, err := r.scanSensor(tx.QueryRowContext(ctx, "SELECT "+r.columns()+" FROM sensors WHERE id = $1", id))
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SensorNotFound(id)
		}
		if err != nil {
			return err
		}
		found = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *PostgresSensorsRepo) GetSensorByLocation(ctx context.Context, location string) (*domain.SensorRecord, error) {
	var found *domain.SensorRecord
	err := r.withTx(ctx, "get by location", true, func(ctx context.Context, tx *sql.Tx) error {
		q := "SELECT " + r.columns() + " FROM sensors WHERE location = $1 ORDER BY id ASC LIMIT 1"
		rec, err := r.scanSensor(tx.QueryRowContext(ctx, q, location))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *PostgresSensorsRepo) UpdateSensor(ctx context.Context, id int64, patch domain.SensorPatch) (*domain.SensorRecord, error) {
	if !r.storeReadings {
		patch = patch.WithoutReadings()
	}

	set := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if v, ok := patch.Name.Get(); ok {
		add("name", v)
	}
	if v, ok := patch.Type.Get(); ok {
		add("type", string(v))
	}
	if v, ok := patch.Location.Get(); ok {
		add("location", v)
	}
	if v, ok := patch.Value.Get(); ok {
		add("value", v)
	}
	if v, ok := patch.Unit.Get(); ok {
		add("unit", v)
	}
	if v, ok := patch.Status.Get(); ok {
		add("status", string(v))
	}
	if len(set) == 0 {
		return nil, domain.NewStoreError("update", domain.ErrNoFieldsToUpdate)
	}
	add("last_updated", r.now().UTC())

	args = append(args, id)
	q := "UPDATE sensors SET " + strings.Join(set, ", ") +
		fmt.Sprintf(" WHERE id = $%d RETURNING ", len(args)) + r.columns()

	var updated *domain.SensorRecord
	err := r.withTx(ctx, "update", false, func(ctx context.Context, tx *sql.Tx) error {
		rec, err := r.scanSensor(tx.QueryRowContext(ctx, q, args...))
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SensorNotFound(id)
		}
		if err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *PostgresSensorsRepo) DeleteSensor(ctx context.Context, id int64) (bool, error) {
	err := r.withTx(ctx, "delete", false, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM sensors WHERE id = $1", id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.SensorNotFound(id)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullStatus(v *domain.SensorStatus) any {
	if v == nil {
		return nil
	}
	return string(*v)
}
