package siverr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	t.Parallel()

	err := New(KindIO, "digest", "/tmp/a", fs.ErrPermission)

	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.NotErrorIs(t, err, ErrParse)

	wrapped := fmt.Errorf("initialization failed: %w", err)
	assert.ErrorIs(t, wrapped, ErrIO)
	assert.Equal(t, KindIO, KindOf(wrapped))
}

func TestError_Message(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "op path and cause",
			err:  New(KindIO, "open", "/tmp/x", errors.New("boom")),
			want: "open /tmp/x: boom",
		},
		{
			name: "line number",
			err:  AtLine(KindParse, "read manifest", "base.csv", 4, errors.New("expected 8 columns, got 7")),
			want: "read manifest base.csv: line 4: expected 8 columns, got 7",
		},
		{
			name: "falls back to sentinel text",
			err:  New(KindNotADirectory, "scan", "/etc/hosts", nil),
			want: "scan /etc/hosts: not a directory",
		},
		{
			name: "bare kind",
			err:  &Error{Kind: KindConfigurationConflict},
			want: "configuration conflict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindOf_NoKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}
