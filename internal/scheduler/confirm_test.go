package scheduler

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    bool
		invalid int
	}{
		{"correct key", "abc123\n", true, 0},
		{"retry then correct", "nope\n\nabc123\n", true, 2},
		{"exit cancels", "exit\n", false, 0},
		{"closed input cancels", "nope\n", false, 1},
		{"surrounding whitespace", "  abc123  \n", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			p := &PromptConfirmer{In: strings.NewReader(tt.input), Out: &out}

			ok, err := p.Confirm(context.Background(), Confirmation{ConfirmKey: "abc123", Path: "/var/log/xcleanup/job-confirm-j.log"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.invalid, strings.Count(out.String(), "Invalid confirm key. Try again."))
			assert.True(t, strings.HasPrefix(out.String(), "Confirmation required. Review: /var/log/xcleanup/job-confirm-j.log\n"))
		})
	}
}

func TestPromptConfirmerHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &PromptConfirmer{In: strings.NewReader("abc123\n"), Out: &strings.Builder{}}
	ok, err := p.Confirm(ctx, Confirmation{ConfirmKey: "abc123"})
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}
