/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package ratecontroltest provides a manually driven scheduler and clock
// for deterministic testing of code that uses the ratecontrol package.
package ratecontroltest
