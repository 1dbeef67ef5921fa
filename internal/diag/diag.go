// Package diag collects the recovered conditions of an engine run.
//
// Nothing the engine recovers from is dropped silently: an unresolved
// attribute, a missing counter or a rule without matches becomes a record
// here, optionally echoed to a log.Logger as it happens.
package diag

import (
	"fmt"
	"log"
	"strings"
)

// Severity of a diagnostic record.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Codes used by the engine.
const (
	CodeNoMatches     = "no-matches"
	CodeUnresolved    = "unresolved-attribute"
	CodeComputeFailed = "computed-failed"
	CodeCriteria      = "criteria-error"
	CodeCounter       = "unresolved-counter"
	CodeMapped        = "mapped"
	CodeAttribute     = "attribute"
	CodeAction        = "action"
	CodeFatal         = "fatal"
)

// Diagnostic is one record.
type Diagnostic struct {
	Severity Severity
	Code     string
	Path     string
	Message  string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Code != "" {
		fmt.Fprintf(&b, "[%s] ", d.Code)
	}
	if d.Path != "" {
		b.WriteString(d.Path)
		b.WriteString(": ")
	}
	b.WriteString(d.Message)
	return b.String()
}

// Sink receives diagnostics.
type Sink interface {
	Report(d Diagnostic)
}

// Collector is a Sink that keeps every record and can echo them to a logger.
type Collector struct {
	records []Diagnostic
	logger  *log.Logger
	minEcho Severity
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger echoes records at or above min as key=value lines.
func WithLogger(l *log.Logger, min Severity) Option {
	return func(c *Collector) {
		c.logger = l
		c.minEcho = min
	}
}

func NewCollector(opts ...Option) *Collector {
	c := &Collector{}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Report implements Sink.
func (c *Collector) Report(d Diagnostic) {
	c.records = append(c.records, d)
	if c.logger != nil && d.Severity >= c.minEcho {
		c.logger.Printf("level=%s code=%s path=%s msg=%q", d.Severity, d.Code, d.Path, d.Message)
	}
}

func (c *Collector) Infof(code, path, format string, args ...any) {
	c.Report(Diagnostic{Severity: Info, Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *Collector) Warnf(code, path, format string, args ...any) {
	c.Report(Diagnostic{Severity: Warning, Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *Collector) Errorf(code, path, format string, args ...any) {
	c.Report(Diagnostic{Severity: Error, Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Records returns every record in report order.
func (c *Collector) Records() []Diagnostic {
	cp := make([]Diagnostic, len(c.records))
	copy(cp, c.records)
	return cp
}

// Filter returns the records with the given code.
func (c *Collector) Filter(code string) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.records {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Count returns how many records have severity s.
func (c *Collector) Count(s Severity) int {
	n := 0
	for _, d := range c.records {
		if d.Severity == s {
			n++
		}
	}
	return n
}

// Discard drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Report(Diagnostic) {}
