// Package common defines shared constants and sentinel errors used across
// the upload coordination layers of PhotoBatch. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Queue-level errors.
	ErrDuplicateID = errors.New("duplicate item id")

	// Transport-level errors.
	ErrNotFound = errors.New("not found")
	ErrRejected = errors.New("request rejected")

	// Coordinator-level errors.
	ErrJobActive   = errors.New("batch job already active")
	ErrNothingToDo = errors.New("no queued items to upload")

	// Push-channel errors.
	ErrNotConnected = errors.New("push channel not connected")
)
