package recon

import "fmt"

// ErrGeometry is returned when the detector description is inconsistent.
type ErrGeometry struct {
	ModuleID int
	Reason   string
}

func (e *ErrGeometry) Error() string {
	return fmt.Sprintf("invalid geometry for module %d: %s", e.ModuleID, e.Reason)
}

// ErrUnknownOption is returned for a named reconstruction option that does not exist.
type ErrUnknownOption struct {
	Name string
}

func (e *ErrUnknownOption) Error() string {
	return fmt.Sprintf("unknown reconstruction option %q", e.Name)
}

// ErrInvalidOption is returned when an option value is out of range.
type ErrInvalidOption struct {
	Name  string
	Value any
}

func (e *ErrInvalidOption) Error() string {
	return fmt.Sprintf("invalid value %v for option %q", e.Value, e.Name)
}
