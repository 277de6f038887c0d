package fs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ld/ainote/pkg/core"
)

func TestDecodeNote(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    core.Note
		wantErr bool
	}{
		{
			name:  "plain content",
			input: "hello",
			want:  core.Note{Content: "hello"},
		},
		{
			name:  "frontmatter",
			input: "---\ntitle: Limits\nstack: Math\nchapter: 2\nsection: 1\ncollaborators:\n  - u2\n---\nbody\n",
			want: core.Note{
				Title:         "Limits",
				Stack:         "Math",
				Chapter:       2,
				Section:       1,
				Collaborators: []string{"u2"},
				Content:       "body\n",
			},
		},
		{
			name:  "empty frontmatter",
			input: "---\n---\nbody",
			want:  core.Note{Content: "body"},
		},
		{
			name:  "crlf",
			input: "---\r\ntitle: Win\r\n---\r\nbody",
			want:  core.Note{Title: "Win", Content: "body"},
		},
		{
			name:    "unterminated",
			input:   "---\ntitle: x\n",
			wantErr: true,
		},
		{
			name:    "bad yaml",
			input:   "---\ntitle: [\n---\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeNote([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeNote_RoundTrip(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	in := core.Note{
		OwnerID:       "u1",
		Title:         "Title: with colon",
		Content:       "line one\n---\nline two",
		Stack:         "Math",
		Chapter:       3,
		Collaborators: []string{"u2", "u3"},
		Timestamp:     &ts,
	}

	data, err := encodeNote(in)
	require.NoError(t, err)

	out, err := decodeNote(data)
	require.NoError(t, err)
	require.NotNil(t, out.Timestamp)
	assert.True(t, ts.Equal(*out.Timestamp))
	out.Timestamp = in.Timestamp
	assert.Equal(t, in, out)
}
