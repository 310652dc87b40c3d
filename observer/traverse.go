package observer

// Traverse reads every nested reactive key of v so that the watcher
// currently evaluating depends on all of them. Observed containers are
// visited once per call, which keeps cyclic structures finite.
func (s *System) Traverse(v any) {
	s.traverse(v, map[any]struct{}{})
	s.seen.Clear()
}

// raw tracks containers without an Observer; they have no dep id to key on.
func (s *System) traverse(v any, raw map[any]struct{}) {
	switch c := v.(type) {
	case *Object:
		if c == nil || c.frozen || !s.visit(c, c.ob, raw) {
			return
		}
		for i := len(c.keys) - 1; i >= 0; i-- {
			s.traverse(c.Get(c.keys[i]), raw)
		}
	case *Array:
		if c == nil || c.frozen || !s.visit(c, c.ob, raw) {
			return
		}
		for i := len(c.items) - 1; i >= 0; i-- {
			s.traverse(c.items[i], raw)
		}
	}
}

func (s *System) visit(c any, ob *Observer, raw map[any]struct{}) bool {
	if ob == nil {
		if _, ok := raw[c]; ok {
			return false
		}
		raw[c] = struct{}{}
		return true
	}
	return s.seen.Add(ob.dep.id)
}
