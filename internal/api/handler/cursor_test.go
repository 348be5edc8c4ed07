package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsedesk/notifyq/internal/domain"
	"github.com/pulsedesk/notifyq/internal/storage"
)

func TestCursorRoundTrip(t *testing.T) {
	orig := &storage.JobCursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 589793, time.UTC),
		JobID:     domain.NewJobID(),
	}

	decoded, err := DecodeJobCursor(EncodeJobCursor(orig))
	require.NoError(t, err)
	assert.True(t, orig.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, orig.JobID, decoded.JobID)
}

func TestDecodeJobCursor(t *testing.T) {
	tests := []struct {
		name    string
		cursor  string
		wantErr bool
		wantNil bool
	}{
		{name: "empty means first page", cursor: "", wantNil: true},
		{name: "not base64", cursor: "not.a.cursor", wantErr: true},
		{name: "missing separator", cursor: "MTIzNDU=", wantErr: true},
		{name: "non numeric timestamp", cursor: "YWJjfGpvYi0x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeJobCursor(tt.cursor)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, got)
			}
		})
	}
}
