//go:build integration

// Package integration provides end-to-end tests for the docview library.
//
// These tests require Docker and spin up a real WebDAV server using testcontainers.
// Run with: go test -tags=integration ./integration/...
package integration
