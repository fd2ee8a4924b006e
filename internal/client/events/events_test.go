package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Event
	}{
		{
			name: "item progress",
			in:   `{"photoId":"p1","progress":40}`,
			want: ItemProgress{PhotoID: "p1", Progress: 40},
		},
		{
			name: "item progress by filename only",
			in:   `{"filename":"a.jpg","progress":10}`,
			want: ItemProgress{Filename: "a.jpg", Progress: 10},
		},
		{
			name: "item completed",
			in:   `{"photoId":"p2","status":"completed"}`,
			want: ItemCompleted{PhotoID: "p2"},
		},
		{
			name: "item completed uppercase status",
			in:   `{"photoId":"p2","status":"COMPLETED"}`,
			want: ItemCompleted{PhotoID: "p2"},
		},
		{
			name: "item failed with reason",
			in:   `{"photoId":"p3","status":"failed","error":"corrupt image"}`,
			want: ItemFailed{PhotoID: "p3", Reason: "corrupt image"},
		},
		{
			name: "item failed without reason gets default",
			in:   `{"filename":"b.jpg","status":"failed"}`,
			want: ItemFailed{Filename: "b.jpg", Reason: "upload failed"},
		},
		{
			name: "job aggregate progress",
			in:   `{"current":3,"total":5}`,
			want: JobProgress{Current: 3, Total: 5},
		},
		{
			name: "aggregate at total without status stays progress",
			in:   `{"current":5,"total":5}`,
			want: JobProgress{Current: 5, Total: 5},
		},
		{
			name: "job completed",
			in:   `{"current":3,"total":3,"status":"completed"}`,
			want: JobCompleted{Current: 3, Total: 3},
		},
		{
			name: "job failed",
			in:   `{"status":"failed","error":"storage full"}`,
			want: JobFailed{Reason: "storage full"},
		},
		{
			name: "job failed default reason",
			in:   `{"status":"failed"}`,
			want: JobFailed{Reason: "batch processing failed"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Unrecognized(t *testing.T) {
	_, err := Decode([]byte(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnrecognized)
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{nope`))
	require.Error(t, err)
}
