//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

// Build compiles every executable into ./bin
func Build() error {
	mg.Deps(BuildRecon)
	mg.Deps(BuildScanParams)
	fmt.Println("Compilation finished")
	return nil
}

func BuildRecon() error {
	fmt.Println("Building recon executable...")
	return goCommand("build", "-o", "./bin/recon", "./recon")
}

func BuildScanParams() error {
	fmt.Println("Building scanParams executable...")
	return goCommand("build", "-o", "./bin/scanParams", "./scanParams")
}

// Test runs the unit tests. The hdf5io package needs libhdf5 through cgo.
func Test() error {
	fmt.Println("Running tests...")
	return goCommand("test", "./...")
}

func goCommand(args ...string) error {
	ldflags := os.Getenv("CGO_LDFLAGS")
	cflags := os.Getenv("CGO_CFLAGS")
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=1",
		fmt.Sprintf("CGO_LDFLAGS=%s", ldflags),
		fmt.Sprintf("CGO_CFLAGS=%s", cflags))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
