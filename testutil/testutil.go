/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil provides helpers for asserting values of Prometheus metrics in tests.
package testutil

type tHelper interface {
	Helper()
}
