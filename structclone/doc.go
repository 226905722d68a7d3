/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package structclone provides deep cloning of arbitrary value graphs and deep merging of records
// (maps with string keys).
//
// Cloning dispatches on a closed set of shapes (see Kind). Cyclic and shared nodes are tracked
// during a single DeepClone call, so the clone has the same aliasing as the source:
// a map that contains itself is cloned into a map that contains the clone.
// Values that cannot be reproduced structurally (channels, functions, pointers to structs with unexported fields)
// are shared between the source and the clone.
package structclone
