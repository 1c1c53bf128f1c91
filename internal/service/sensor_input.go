package service

import (
	"encoding/json"
	"fmt"
	"math"
	"unicode/utf8"

	"sensors-api/internal/domain"
)

const invalidInputMessage = "Invalid input data"

// inputErrors collects "field: reason" violations for one payload.
type inputErrors []string

func (e *inputErrors) add(field, format string, args ...any) {
	*e = append(*e, field+": "+fmt.Sprintf(format, args...))
}

func (e inputErrors) err() error {
	if len(e) == 0 {
		return nil
	}
	return &domain.ValidationError{Message: invalidInputMessage, Fields: e}
}

// ParseCreateInput validates a decoded JSON object against the creation schema.
// Unknown keys are ignored; null optional fields count as absent.
func ParseCreateInput(raw map[string]any) (*domain.NewSensor, error) {
	var (
		errs inputErrors
		in   domain.NewSensor
	)

	if v, ok := present(raw, "name"); !ok {
		errs.add("name", "field required")
	} else if s, ok := textField(&errs, "name", v, domain.NameMaxLen); ok {
		in.Name = s
	}

	if v, ok := present(raw, "type"); !ok {
		errs.add("type", "field required")
	} else if t, ok := typeField(&errs, v); ok {
		in.Type = t
	}

	if v, ok := present(raw, "location"); !ok {
		errs.add("location", "field required")
	} else if s, ok := textField(&errs, "location", v, domain.LocationMaxLen); ok {
		in.Location = s
	}

	if v, ok := present(raw, "unit"); ok {
		if s, ok := textField(&errs, "unit", v, domain.UnitMaxLen); ok {
			in.Unit = &s
		}
	}
	if v, ok := present(raw, "value"); ok {
		if f, ok := numberField(&errs, "value", v); ok {
			in.Value = &f
		}
	}
	if v, ok := present(raw, "status"); ok {
		if st, ok := statusField(&errs, v); ok {
			in.Status = &st
		}
	}

	if err := errs.err(); err != nil {
		return nil, err
	}
	return &in, nil
}

// ParsePatchInput validates a decoded JSON object against the update schema.
// Every field is optional, null drops the field, and a patch left with no
// fields is rejected.
func ParsePatchInput(raw map[string]any) (domain.SensorPatch, error) {
	var (
		errs  inputErrors
		patch domain.SensorPatch
	)

	if v, ok := present(raw, "name"); ok {
		if s, ok := textField(&errs, "name", v, domain.NameMaxLen); ok {
			patch.Name = domain.Some(s)
		}
	}
	if v, ok := present(raw, "type"); ok {
		if t, ok := typeField(&errs, v); ok {
			patch.Type = domain.Some(t)
		}
	}
	if v, ok := present(raw, "location"); ok {
		if s, ok := textField(&errs, "location", v, domain.LocationMaxLen); ok {
			patch.Location = domain.Some(s)
		}
	}
	if v, ok := present(raw, "value"); ok {
		if f, ok := numberField(&errs, "value", v); ok {
			patch.Value = domain.Some(f)
		}
	}
	if v, ok := present(raw, "unit"); ok {
		if s, ok := textField(&errs, "unit", v, domain.UnitMaxLen); ok {
			patch.Unit = domain.Some(s)
		}
	}
	if v, ok := present(raw, "status"); ok {
		if st, ok := statusField(&errs, v); ok {
			patch.Status = domain.Some(st)
		}
	}

	if err := errs.err(); err != nil {
		return domain.SensorPatch{}, err
	}
	if patch.IsEmpty() {
		return domain.SensorPatch{}, domain.NewValidationError("No fields to update")
	}
	return patch, nil
}

// present returns raw[key] unless it is missing or null.
func present(raw map[string]any, key string) (any, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func textField(errs *inputErrors, field string, v any, maxLen int) (string, bool) {
	s, ok := v.(string)
	if !ok {
		errs.add(field, "must be a string")
		return "", false
	}
	n := utf8.RuneCountInString(s)
	if n < 1 {
		errs.add(field, "must not be empty")
		return "", false
	}
	if n > maxLen {
		errs.add(field, "must be at most %d characters", maxLen)
		return "", false
	}
	return s, true
}

func typeField(errs *inputErrors, v any) (domain.SensorType, bool) {
	s, ok := v.(string)
	if !ok {
		errs.add("type", "must be a string")
		return "", false
	}
	t, err := domain.ParseSensorType(s)
	if err != nil {
		errs.add("type", "%v", err)
		return "", false
	}
	return t, true
}

func statusField(errs *inputErrors, v any) (domain.SensorStatus, bool) {
	s, ok := v.(string)
	if !ok {
		errs.add("status", "must be a string")
		return "", false
	}
	st, err := domain.ParseSensorStatus(s)
	if err != nil {
		errs.add("status", "%v", err)
		return "", false
	}
	return st, true
}

func numberField(errs *inputErrors, field string, v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			errs.add(field, "must be a number")
			return 0, false
		}
		f = parsed
	default:
		errs.add(field, "must be a number")
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		errs.add(field, "must be a finite number")
		return 0, false
	}
	return f, true
}
