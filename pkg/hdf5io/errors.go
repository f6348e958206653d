package hdf5io

import (
	"errors"
	"fmt"
)

var errNotATable = errors.New("dataset is not one dimensional")

type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %s: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

type ErrCreateGroup struct {
	Name string
	Err  error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %s: %v", e.Name, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error {
	return e.Err
}

type ErrCreateTable struct {
	Name string
	Err  error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %s: %v", e.Name, e.Err)
}

func (e *ErrCreateTable) Unwrap() error {
	return e.Err
}

// ErrTable is returned when an existing table cannot be read or extended.
type ErrTable struct {
	Name string
	Err  error
}

func (e *ErrTable) Error() string {
	return fmt.Sprintf("error accessing table %s: %v", e.Name, e.Err)
}

func (e *ErrTable) Unwrap() error {
	return e.Err
}
