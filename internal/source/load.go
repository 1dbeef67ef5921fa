package source

import (
	"fmt"
	"io"
	"os"

	"github.com/ohler55/ojg/oj"
)

// LoadJSON decodes a simulator configuration dump. Integers decode as int64.
func LoadJSON(r io.Reader) (any, error) {
	data, err := oj.Load(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse json: %w", err)
	}
	return data, nil
}

// LoadFile reads and decodes a configuration dump from disk.
func LoadFile(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := LoadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}
