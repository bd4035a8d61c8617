//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Bakes the given asset directory with the freshly built binary.
func (Run) Bake(dir string) error {
	mg.Deps(Build.Baker)

	abs, err := filepath.Abs(binary)
	if err != nil {
		return err
	}
	fmt.Printf("Baking %s...\n", dir)
	if _, err := executeCmd(abs, withArgs("bake", filepath.Base(dir)), withDir(filepath.Dir(dir)), withStream()); err != nil {
		return err
	}
	return nil
}

// Prints the header and metadata of a baked asset.
func (Run) Inspect(path string) error {
	mg.Deps(Build.Baker)

	if _, err := executeCmd(binary, withArgs("inspect", path), withStream()); err != nil {
		return err
	}
	return nil
}
