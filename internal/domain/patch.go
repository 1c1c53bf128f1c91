package domain

// Optional distinguishes "not supplied" from a supplied value.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

func (o Optional[T]) IsSet() bool { return o.set }

// SensorPatch is a partial update. Only present fields reach the store.
type SensorPatch struct {
	Name     Optional[string]
	Type     Optional[SensorType]
	Location Optional[string]
	Value    Optional[float64]
	Unit     Optional[string]
	Status   Optional[SensorStatus]
}

// IsEmpty reports whether no field is present.
func (p SensorPatch) IsEmpty() bool {
	return !p.Name.IsSet() && !p.Type.IsSet() && !p.Location.IsSet() &&
		!p.Value.IsSet() && !p.Unit.IsSet() && !p.Status.IsSet()
}

// WithoutReadings drops value, unit and status, for stores that do not persist them.
func (p SensorPatch) WithoutReadings() SensorPatch {
	p.Value = Optional[float64]{}
	p.Unit = Optional[string]{}
	p.Status = Optional[SensorStatus]{}
	return p
}

// Apply folds the present fields into rec.
func (p SensorPatch) Apply(rec *SensorRecord) {
	if v, ok := p.Name.Get(); ok {
		rec.Name = v
	}
	if v, ok := p.Type.Get(); ok {
		rec.Type = v
	}
	if v, ok := p.Location.Get(); ok {
		rec.Location = v
	}
	if v, ok := p.Value.Get(); ok {
		rec.Value = &v
	}
	if v, ok := p.Unit.Get(); ok {
		rec.Unit = &v
	}
	if v, ok := p.Status.Get(); ok {
		rec.Status = &v
	}
}
