// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

package main

import (
	"os/exec"

	"github.com/magefile/mage/sh"
)

const binLint = "golangci-lint"

// Lint runs golangci-lint, or go vet when golangci-lint is not installed.
func Lint() error {
	if _, err := exec.LookPath(binLint); err != nil {
		return sh.RunV(binGo, "vet", "./...")
	}
	return sh.RunV(binLint, "run", "./...")
}
