/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides log.FieldLogger implementations for tests:
// Recorder keeps entries in memory for assertions, and NewLogger writes JSON to stderr or a given writer.
package logtest
