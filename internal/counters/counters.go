// Package counters parses simulator performance-counter logs.
package counters

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/agentic-research/archmap/internal/source"
)

// Record is one qualifying log line.
type Record struct {
	Name  string
	Value int64
}

// A qualifying line starts with a name token and a value token and carries a
// trailing "#" description, e.g.
//
//	system.cpu.numCycles    1234    # number of cpu cycles simulated
var statLine = regexp.MustCompile(`^(\S+)\s+(\S+).*#`)

const maxLine = 1 << 20

// Parse reads every qualifying line. Lines that do not match, and values
// that are not integral, are skipped.
func Parse(r io.Reader) ([]Record, error) {
	var out []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		m := statLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		v, ok := source.Int(m[2])
		if !ok {
			continue
		}
		out = append(out, Record{Name: m[1], Value: v})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read counters: %w", err)
	}
	return out, nil
}

// ParseFile parses the log at path.
func ParseFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Set indexes records by full name. When a name repeats (several stat dumps
// in one log) the last occurrence wins.
type Set struct {
	records []Record
	byName  map[string]int64
}

func NewSet(records []Record) *Set {
	s := &Set{records: records, byName: make(map[string]int64, len(records))}
	for _, r := range records {
		s.byName[r.Name] = r.Value
	}
	return s
}

// Lookup returns the value recorded under name.
func (s *Set) Lookup(name string) (int64, bool) {
	v, ok := s.byName[name]
	return v, ok
}

// Records returns the records in log order.
func (s *Set) Records() []Record { return s.records }

func (s *Set) Len() int { return len(s.records) }
