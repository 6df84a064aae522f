package utils

// Optional holds a value that may not have been assigned yet. The zero value
// is empty.
type Optional[T any] struct {
	value T
	set   bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

// SetOnce stores v and reports true, or reports false and leaves the stored
// value alone if one is already present.
func (o *Optional[T]) SetOnce(v T) bool {
	if o.set {
		return false
	}
	o.value = v
	o.set = true
	return true
}
