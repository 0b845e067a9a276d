package bptree

import "errors"

// ErrNotFound is returned by Find, Ge and Delete when the key is absent.
var ErrNotFound = errors.New("bptree: key not found")

// ErrCapacityExceeded is returned when a value exceeds the tree's
// configured value size.
var ErrCapacityExceeded = errors.New("bptree: value exceeds configured value size")

// ErrTooDeep is returned when a traversal would exceed MaxPath levels,
// signalling a corrupt tree rather than a normal operating condition.
var ErrTooDeep = errors.New("bptree: tree depth exceeds MaxPath")
