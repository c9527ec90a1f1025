package mapview

import "fmt"

// MissingDependencyError reports a collaborator the map cannot run without.
type MissingDependencyError struct {
	Name string
	Err  error
}

func (e *MissingDependencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("missing dependency %s: %v", e.Name, e.Err)
	}
	return "missing dependency " + e.Name
}

func (e *MissingDependencyError) Unwrap() error { return e.Err }
