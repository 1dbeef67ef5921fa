// Package actions turns counter records into named per-component action
// counts.
package actions

import (
	"fmt"
	"strings"
)

// Counter is one counter-name expression of an action. Alternatives are
// tried in order and the first that resolves wins. An optional counter that
// resolves to nothing contributes zero.
type Counter struct {
	Alternatives []string
	Optional     bool
}

// ParseCounter parses "name", "name|alt" and "?name".
func ParseCounter(expr string) (Counter, error) {
	s := strings.TrimSpace(expr)
	var c Counter
	if strings.HasPrefix(s, "?") {
		c.Optional = true
		s = strings.TrimSpace(s[1:])
	}
	for _, alt := range strings.Split(s, "|") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		c.Alternatives = append(c.Alternatives, alt)
	}
	if len(c.Alternatives) == 0 {
		return Counter{}, fmt.Errorf("empty counter expression %q", expr)
	}
	return c, nil
}

// MustParseCounter is ParseCounter for literals.
func MustParseCounter(expr string) Counter {
	c, err := ParseCounter(expr)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Counter) String() string {
	s := strings.Join(c.Alternatives, "|")
	if c.Optional {
		return "?" + s
	}
	return s
}

// Action is a derived count: the sum of Add minus the sum of Subtract.
type Action struct {
	Name     string
	Add      []Counter
	Subtract []Counter
	// Optional marks every counter of the action optional.
	Optional bool
}

func (a Action) counters() []Counter {
	out := make([]Counter, 0, len(a.Add)+len(a.Subtract))
	out = append(out, a.Add...)
	return append(out, a.Subtract...)
}

// Strategy selects how counters are correlated with a component.
type Strategy int

const (
	// Direct looks a counter up as source + "." + name.
	Direct Strategy = iota
	// Substring scans every record for the component's fragment and the
	// counter name.
	Substring
)

func (s Strategy) String() string {
	switch s {
	case Direct:
		return "direct"
	case Substring:
		return "substring"
	default:
		return "unknown"
	}
}

// ParseStrategy accepts "direct" (or empty) and "substring".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct":
		return Direct, nil
	case "substring":
		return Substring, nil
	}
	return Direct, fmt.Errorf("unknown correlation strategy %q", s)
}
