package service

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"sensors-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCreateInput(t *testing.T) {
	in, err := ParseCreateInput(map[string]any{
		"name":     "Living room",
		"type":     "humidity",
		"location": "Living room",
		"unit":     "%",
		"value":    json.Number("41.5"),
		"status":   "active",
		"extra":    true,
	})

	require.NoError(t, err)
	assert.Equal(t, "Living room", in.Name)
	assert.Equal(t, domain.SensorTypeHumidity, in.Type)
	require.NotNil(t, in.Unit)
	assert.Equal(t, "%", *in.Unit)
	require.NotNil(t, in.Value)
	assert.Equal(t, 41.5, *in.Value)
	require.NotNil(t, in.Status)
	assert.Equal(t, domain.SensorStatusActive, *in.Status)
}

func TestParseCreateInput_OptionalNulls(t *testing.T) {
	in, err := ParseCreateInput(map[string]any{
		"name": "a", "type": "light", "location": "b",
		"unit": nil, "value": nil, "status": nil,
	})

	require.NoError(t, err)
	assert.Nil(t, in.Unit)
	assert.Nil(t, in.Value)
	assert.Nil(t, in.Status)
}

func TestParseCreateInput_Violations(t *testing.T) {
	cases := []struct {
		name  string
		raw   map[string]any
		field string
	}{
		{"missing name", map[string]any{"type": "light", "location": "b"}, "name: field required"},
		{"null name", map[string]any{"name": nil, "type": "light", "location": "b"}, "name: field required"},
		{"empty name", map[string]any{"name": "", "type": "light", "location": "b"}, "name: must not be empty"},
		{"long name", map[string]any{"name": strings.Repeat("n", 101), "type": "light", "location": "b"}, "name: must be at most 100 characters"},
		{"numeric name", map[string]any{"name": 5.0, "type": "light", "location": "b"}, "name: must be a string"},
		{"unknown type", map[string]any{"name": "a", "type": "smoke", "location": "b"}, `type: unknown sensor type "smoke"`},
		{"long location", map[string]any{"name": "a", "type": "light", "location": strings.Repeat("l", 201)}, "location: must be at most 200 characters"},
		{"long unit", map[string]any{"name": "a", "type": "light", "location": "b", "unit": strings.Repeat("u", 21)}, "unit: must be at most 20 characters"},
		{"string value", map[string]any{"name": "a", "type": "light", "location": "b", "value": "12"}, "value: must be a number"},
		{"nan value", map[string]any{"name": "a", "type": "light", "location": "b", "value": math.NaN()}, "value: must be a finite number"},
		{"bad status", map[string]any{"name": "a", "type": "light", "location": "b", "status": "broken"}, `status: unknown sensor status "broken"`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseCreateInput(c.raw)
			require.Error(t, err)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "Invalid input data", verr.Message)
			assert.Contains(t, verr.Fields, c.field)
		})
	}
}

func TestParseCreateInput_LengthCountsCharacters(t *testing.T) {
	_, err := ParseCreateInput(map[string]any{
		"name": strings.Repeat("ж", 100), "type": "light", "location": "b", "unit": "°C",
	})
	assert.NoError(t, err)
}

func TestParseCreateInput_ReportsEveryField(t *testing.T) {
	_, err := ParseCreateInput(map[string]any{})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)
}

func TestParsePatchInput(t *testing.T) {
	patch, err := ParsePatchInput(map[string]any{
		"type":   "pressure",
		"value":  int64(1013),
		"status": nil,
	})

	require.NoError(t, err)
	typ, ok := patch.Type.Get()
	assert.True(t, ok)
	assert.Equal(t, domain.SensorTypePressure, typ)
	v, ok := patch.Value.Get()
	assert.True(t, ok)
	assert.Equal(t, 1013.0, v)
	assert.False(t, patch.Status.IsSet())
	assert.False(t, patch.Name.IsSet())
}

func TestParsePatchInput_InvalidPresentField(t *testing.T) {
	_, err := ParsePatchInput(map[string]any{"name": "", "location": "x"})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"name: must not be empty"}, verr.Fields)
}

func TestParsePatchInput_Empty(t *testing.T) {
	_, err := ParsePatchInput(map[string]any{"name": nil})

	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, "No fields to update", err.Error())
}
