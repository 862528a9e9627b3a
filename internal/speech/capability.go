package speech

// Capability is a platform feature that is either present with a handle
// or absent. The zero value is Unavailable.
type Capability[T any] struct {
	handle T
	ok     bool
}

func Available[T any](handle T) Capability[T] {
	return Capability[T]{handle: handle, ok: true}
}

func Unavailable[T any]() Capability[T] {
	return Capability[T]{}
}

// Get returns the handle and whether the capability is present.
func (c Capability[T]) Get() (T, bool) {
	return c.handle, c.ok
}

func (c Capability[T]) Available() bool {
	return c.ok
}
