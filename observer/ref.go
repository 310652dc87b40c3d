package observer

// Ref is a standalone reactive cell. Get and Set follow the same tracking and
// notification rules as a reactive key of an Object.
type Ref[T any] struct {
	p property
}

func NewRef[T any](sys *System, v T) *Ref[T] {
	return newRef(sys, v, false)
}

// NewShallowRef creates a Ref that does not observe the value it holds.
func NewShallowRef[T any](sys *System, v T) *Ref[T] {
	return newRef(sys, v, true)
}

func newRef[T any](sys *System, v T, shallow bool) *Ref[T] {
	r := &Ref[T]{p: property{
		value:    v,
		dep:      sys.newDep(),
		shallow:  shallow,
		reactive: true,
	}}
	if !shallow {
		r.p.childOb = sys.Observe(v, false)
	}
	return r
}

func (r *Ref[T]) Get() T {
	return as[T](r.p.get())
}

// Peek reads the value without registering a dependency.
func (r *Ref[T]) Peek() T {
	return as[T](r.p.value)
}

func (r *Ref[T]) Set(v T) {
	r.p.set(v)
}

func (r *Ref[T]) Dep() *Dep {
	return r.p.dep
}

func as[T any](v any) T {
	t, _ := v.(T)
	return t
}
