// Package client provides the REST transport used by the upload
// coordinator: the batch transfer call and the per-photo status lookup.
package client

import "context"

// FilePart is one file of a batch transfer.
type FilePart struct {
	ID          string
	Name        string
	ContentType string
	Data        []byte
}

// BatchUploadResult is the server's answer to an accepted batch. PhotoIDs is
// positionally aligned to the submitted file list.
type BatchUploadResult struct {
	JobID       string   `json:"jobId"`
	TotalPhotos int      `json:"totalPhotos"`
	PhotoIDs    []string `json:"photoIds"`
}

// PhotoStatusResult is the server-side processing state of one photo.
// Status is one of QUEUED, UPLOADING, COMPLETED, FAILED, CANCELLED.
type PhotoStatusResult struct {
	PhotoID  string `json:"photoId"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Error    string `json:"error"`
}

// ProgressFunc receives aggregate transport-level progress for the whole
// batch: bytes written so far and the total body size.
type ProgressFunc func(sent, total int64)

// Client is the REST surface consumed by the coordinator and the poll
// fallback monitor.
type Client interface {
	// BatchUpload performs one multipart transfer of all parts. The whole
	// batch succeeds or fails as a unit; per-item outcomes arrive later via
	// push or poll. onProgress may be nil.
	BatchUpload(ctx context.Context, parts []FilePart, onProgress ProgressFunc) (*BatchUploadResult, error)

	// PhotoStatus looks up one photo's processing state. A photo that has
	// not materialized server-side yet yields common.ErrNotFound.
	PhotoStatus(ctx context.Context, photoID string) (*PhotoStatusResult, error)

	Close() error
}
