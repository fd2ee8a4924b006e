// Package events defines the closed set of progress signals the coordinator
// reacts to, decoded once at the channel boundary.
//
// The server's wire payloads are loosely shaped (optional fields), so both
// the push channel and the poll monitor translate what they receive into
// exactly one of these variants. Reconciliation then switches on the variant
// set instead of probing optional fields, and the two sources cannot
// disagree in their effect.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Event is one progress signal. Implementations are the item-scoped
// ItemProgress/ItemCompleted/ItemFailed and the job-scoped
// JobProgress/JobCompleted/JobFailed.
type Event interface {
	isEvent()
}

// ItemProgress reports per-item percentage progress.
type ItemProgress struct {
	PhotoID  string
	Filename string
	Progress int
}

// ItemCompleted reports that one item finished successfully.
type ItemCompleted struct {
	PhotoID  string
	Filename string
}

// ItemFailed reports that one item failed, with a human-readable reason.
type ItemFailed struct {
	PhotoID  string
	Filename string
	Reason   string
}

// JobProgress is the aggregate counter signal: Current of Total items done.
type JobProgress struct {
	Current int
	Total   int
}

// JobCompleted signals the whole job finished.
type JobCompleted struct {
	Current int
	Total   int
}

// JobFailed signals the whole job failed.
type JobFailed struct {
	Reason string
}

func (ItemProgress) isEvent()  {}
func (ItemCompleted) isEvent() {}
func (ItemFailed) isEvent()    {}
func (JobProgress) isEvent()   {}
func (JobCompleted) isEvent()  {}
func (JobFailed) isEvent()     {}

// ErrUnrecognized is returned by Decode for payloads that carry neither an
// item reference nor an aggregate counter.
var ErrUnrecognized = errors.New("unrecognized event payload")

// wirePayload mirrors the fields a job:{id}:progress frame may carry.
// Pointers distinguish absent from zero.
type wirePayload struct {
	PhotoID  string `json:"photoId"`
	Filename string `json:"filename"`
	Progress *int   `json:"progress"`
	Status   string `json:"status"`
	Error    string `json:"error"`
	Current  *int   `json:"current"`
	Total    *int   `json:"total"`
}

// Decode maps a wire payload to exactly one event variant.
//
// A payload referencing an individual item (photoId or filename present) is
// item-scoped; its status string selects completion, failure, or progress.
// Anything else with an aggregate counter is job-scoped. A current >= total
// counter without an explicit status is still JobProgress: deciding that the
// job is finished is the coordinator's call, not the decoder's.
func Decode(data []byte) (Event, error) {
	var p wirePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	status := strings.ToLower(p.Status)

	if p.PhotoID != "" || p.Filename != "" {
		switch status {
		case "completed":
			return ItemCompleted{PhotoID: p.PhotoID, Filename: p.Filename}, nil
		case "failed":
			reason := p.Error
			if reason == "" {
				reason = "upload failed"
			}
			return ItemFailed{PhotoID: p.PhotoID, Filename: p.Filename, Reason: reason}, nil
		default:
			progress := 0
			if p.Progress != nil {
				progress = *p.Progress
			}
			return ItemProgress{PhotoID: p.PhotoID, Filename: p.Filename, Progress: progress}, nil
		}
	}

	current, total := 0, 0
	if p.Current != nil {
		current = *p.Current
	}
	if p.Total != nil {
		total = *p.Total
	}

	switch status {
	case "completed":
		return JobCompleted{Current: current, Total: total}, nil
	case "failed":
		reason := p.Error
		if reason == "" {
			reason = "batch processing failed"
		}
		return JobFailed{Reason: reason}, nil
	}

	if p.Current != nil || p.Total != nil {
		return JobProgress{Current: current, Total: total}, nil
	}

	return nil, ErrUnrecognized
}
