package arch

// Attributes is an insertion-ordered attribute map. The zero value is ready
// to use.
type Attributes struct {
	keys []string
	vals map[string]any
}

// Set adds name or overwrites its value in place.
func (a *Attributes) Set(name string, value any) {
	if a.vals == nil {
		a.vals = make(map[string]any)
	}
	if _, ok := a.vals[name]; !ok {
		a.keys = append(a.keys, name)
	}
	a.vals[name] = value
}

func (a *Attributes) Get(name string) (any, bool) {
	v, ok := a.vals[name]
	return v, ok
}

func (a *Attributes) Has(name string) bool {
	_, ok := a.vals[name]
	return ok
}

// Keys returns attribute names in insertion order.
func (a *Attributes) Keys() []string {
	cp := make([]string, len(a.keys))
	copy(cp, a.keys)
	return cp
}

func (a *Attributes) Len() int { return len(a.keys) }

// Map returns an unordered copy.
func (a *Attributes) Map() map[string]any {
	out := make(map[string]any, len(a.keys))
	for _, k := range a.keys {
		out[k] = a.vals[k]
	}
	return out
}
