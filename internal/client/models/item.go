// Package models defines upload tracking types shared by the client layers.
package models

// Status classifies the lifecycle state of an upload item.
//
// Transitions follow queued -> uploading -> {completed, failed}. The direct
// jumps queued -> completed and queued -> failed are legal because a push or
// poll signal may arrive before any progress event. Completed and failed are
// terminal.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is a final state that must never be reopened.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// FileMetadata describes the submitted file. Set once at submission.
type FileMetadata struct {
	Name        string
	Size        int64
	ContentType string
	PreviewPath string
}

// UploadItem is one file's tracking record within the local queue.
//
// ID is client-generated and immutable. ServerPhotoID is assigned at most
// once, when the batch response is mapped, and never cleared afterwards.
// Progress is only meaningful while the item is uploading or completed.
type UploadItem struct {
	ID            string
	Meta          FileMetadata
	ServerPhotoID string
	Status        Status
	Progress      int
	Error         string
}

// HistoryRecord is a journal row describing a finished upload.
type HistoryRecord struct {
	ItemID        string
	FileName      string
	ServerPhotoID string
	JobID         string
	Status        Status
	Error         string
	FinishedAt    int64
}
