package db

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned by Get for an absent key.
	ErrKeyNotFound = errors.New("db: key not found")
	// ErrRevisionMismatch is the sentinel behind RevisionMismatchError.
	ErrRevisionMismatch = errors.New("db: revision mismatch")
)

// Command names recorded in Error.Op.
const (
	OpGet     = "GET"
	OpSet     = "SET"
	OpDel     = "DEL"
	OpExists  = "EXISTS"
	OpScan    = "SCAN"
	OpHGetAll = "HGETALL"
	OpEval    = "EVAL"
)

// RevisionField is the hash field CompareAndSwap guards.
const RevisionField = "revision"

// Error tags a driver failure with the command that produced it.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// RevisionMismatchError carries the revision that was actually stored, so a
// caller can reload and retry.
type RevisionMismatchError struct {
	Current int64
}

func (e *RevisionMismatchError) Error() string {
	return fmt.Sprintf("%v: stored revision is %d", ErrRevisionMismatch, e.Current)
}

func (e *RevisionMismatchError) Unwrap() error { return ErrRevisionMismatch }
