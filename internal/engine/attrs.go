package engine

// attrList stages a component's attributes before they reach the tree, so
// the class attribute can be taken out and values remapped first.
type attrList struct {
	names []string
	vals  map[string]any
}

func newAttrList() *attrList {
	return &attrList{vals: make(map[string]any)}
}

func (l *attrList) set(name string, v any) {
	if _, ok := l.vals[name]; !ok {
		l.names = append(l.names, name)
	}
	l.vals[name] = v
}

func (l *attrList) has(name string) bool {
	_, ok := l.vals[name]
	return ok
}

func (l *attrList) remove(name string) (any, bool) {
	v, ok := l.vals[name]
	if !ok {
		return nil, false
	}
	delete(l.vals, name)
	for i, n := range l.names {
		if n == name {
			l.names = append(l.names[:i], l.names[i+1:]...)
			break
		}
	}
	return v, true
}
