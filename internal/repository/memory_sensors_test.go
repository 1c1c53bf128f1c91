package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"sensors-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySensorsRepo_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySensorsRepo(true)
	repo.now = func() time.Time { return fixedNow }

	a, err := repo.CreateSensor(ctx, &domain.NewSensor{Name: "A", Type: domain.SensorTypeHumidity, Location: "Bath"})
	require.NoError(t, err)
	b, err := repo.CreateSensor(ctx, &domain.NewSensor{Name: "B", Type: domain.SensorTypeHumidity, Location: "Bath"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.Equal(t, fixedNow, a.CreatedAt)
	assert.Equal(t, a.CreatedAt, a.LastUpdated)

	all, err := repo.ListSensors(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].ID)
	assert.Equal(t, int64(2), all[1].ID)

	byLoc, err := repo.GetSensorByLocation(ctx, "Bath")
	require.NoError(t, err)
	require.NotNil(t, byLoc)
	assert.Equal(t, int64(1), byLoc.ID)

	none, err := repo.GetSensorByLocation(ctx, "Attic")
	require.NoError(t, err)
	assert.Nil(t, none)

	later := fixedNow.Add(time.Minute)
	repo.now = func() time.Time { return later }
	upd, err := repo.UpdateSensor(ctx, 2, domain.SensorPatch{Location: domain.Some("Hall")})
	require.NoError(t, err)
	assert.Equal(t, "Hall", upd.Location)
	assert.Equal(t, "B", upd.Name)
	assert.Equal(t, later, upd.LastUpdated)
	assert.Equal(t, fixedNow, upd.CreatedAt)

	ok, err := repo.DeleteSensor(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.DeleteSensor(ctx, 1)
	assert.True(t, domain.IsNotFound(err))
	_, err = repo.GetSensor(ctx, 1)
	assert.True(t, domain.IsNotFound(err))
	_, err = repo.UpdateSensor(ctx, 1, domain.SensorPatch{Name: domain.Some("x")})
	assert.True(t, domain.IsNotFound(err))
}

func TestMemorySensorsRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySensorsRepo(true)

	created, err := repo.CreateSensor(ctx, &domain.NewSensor{Name: "A", Type: domain.SensorTypeLight, Location: "L"})
	require.NoError(t, err)
	created.Name = "mutated"

	got, err := repo.GetSensor(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
}

func TestMemorySensorsRepo_SlimProfile(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySensorsRepo(false)

	v := 12.0
	rec, err := repo.CreateSensor(ctx, &domain.NewSensor{Name: "A", Type: domain.SensorTypeLight, Location: "L", Value: &v})
	require.NoError(t, err)
	assert.Nil(t, rec.Value)

	_, err = repo.UpdateSensor(ctx, rec.ID, domain.SensorPatch{Value: domain.Some(1.0)})
	require.Error(t, err)
	assert.True(t, domain.IsStore(err))
	assert.True(t, errors.Is(err, domain.ErrNoFieldsToUpdate))
}
