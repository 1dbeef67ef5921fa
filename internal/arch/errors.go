package arch

import (
	"errors"
	"fmt"

	"github.com/agentic-research/archmap/internal/dotpath"
)

var (
	ErrNotFound      = errors.New("node not found")
	ErrStructure     = errors.New("invalid architecture structure")
	ErrDuplicateName = errors.New("duplicate component name")
)

// StructureError reports an attachment against a path that was never
// created, or a container request that collides with a local component.
type StructureError struct {
	Path   dotpath.Path
	Reason string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("structure error at %s: %s", e.Path, e.Reason)
}

func (e *StructureError) Unwrap() error { return ErrStructure }

// DuplicateNameError reports a sibling name collision.
type DuplicateNameError struct {
	Parent dotpath.Path
	Name   string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("component %q already exists under %s", e.Name, e.Parent)
}

func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName || target == ErrStructure
}

// NotFoundError reports a lookup of a path with no node.
type NotFoundError struct {
	Path dotpath.Path
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("component %s: %v", e.Path, ErrNotFound)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || target == ErrStructure
}
