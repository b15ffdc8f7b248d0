//go:build tools

// Package anonchat pins the code generators used by go:generate directives so that
// go.mod tracks them and `go generate ./...` works on a fresh checkout.
package anonchat

import (
	_ "go.uber.org/mock/mockgen"
)
