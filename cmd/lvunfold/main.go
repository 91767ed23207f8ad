// SPDX-License-Identifier: MIT

// Command lvunfold runs unfolding scenarios described in YAML.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
