package resource

// State is an ordered property mapping. Names are unique; replacing an
// existing name keeps its original position.
type State struct {
	names  []string
	values map[string]any
}

// NewState returns an empty State.
func NewState() *State {
	return &State{values: make(map[string]any)}
}

// Put sets name to value and returns s for chaining.
func (s *State) Put(name string, value any) *State {
	if s.values == nil {
		s.values = make(map[string]any)
	}
	if _, exists := s.values[name]; !exists {
		s.names = append(s.names, name)
	}
	s.values[name] = value
	return s
}

// Get returns the value stored under name.
func (s *State) Get(name string) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.values[name]
	return v, ok
}

// Remove deletes name, preserving the order of the remaining properties.
func (s *State) Remove(name string) {
	if s == nil {
		return
	}
	if _, ok := s.values[name]; !ok {
		return
	}
	delete(s.values, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
}

// Len returns the number of properties.
func (s *State) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns the property names in definition order.
func (s *State) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Range calls fn for each property in definition order until fn returns false.
func (s *State) Range(fn func(name string, value any) bool) {
	if s == nil {
		return
	}
	for _, name := range s.names {
		if !fn(name, s.values[name]) {
			return
		}
	}
}
