//go:build tools

// Package tools tracks the code generators invoked by go generate.
package main

import (
	_ "go.uber.org/mock/mockgen"
)
