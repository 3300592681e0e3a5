package deps

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDependency is the sentinel every DependencyError unwraps to.
var ErrDependency = errors.New("dependency error")

// DependencyError reports types that could not be ordered because they
// depend on each other.
type DependencyError struct {
	Cycle []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("deps: dependency cycle among %s", strings.Join(e.Cycle, ", "))
}

func (e *DependencyError) Unwrap() error { return ErrDependency }
