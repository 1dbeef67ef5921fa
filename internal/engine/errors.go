package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfig is the sentinel behind every *ConfigError.
var ErrConfig = errors.New("configuration error")

// ConfigError reports inputs or required container attributes that are
// missing. It is raised before the destination tree is built.
type ConfigError struct {
	// Missing names the absent inputs or attributes ("technology",
	// "system.clockrate").
	Missing []string
	Reason  string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing %s", strings.Join(e.Missing, ", "))
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return ErrConfig }
