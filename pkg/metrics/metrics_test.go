package metrics

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lineFormat = regexp.MustCompile(`^name=[^,]+,value=-?\d+$`)

func TestMetricString(t *testing.T) {
	t.Parallel()

	m := Metric{Path: "Custom Metrics|appdctl|Process|nginx", Value: 1}
	assert.Equal(t, "name=Custom Metrics|appdctl|Process|nginx,value=1", m.String())
	assert.Regexp(t, lineFormat, m.String())
}

func TestJoinPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		segments []string
		want     string
	}{
		{
			name:     "simple join",
			segments: []string{"Custom Metrics", "appdctl", "Service", "sshd"},
			want:     "Custom Metrics|appdctl|Service|sshd",
		},
		{
			name:     "segments containing separators are flattened",
			segments: []string{"Custom Metrics|appdctl", "Queue|Mail"},
			want:     "Custom Metrics|appdctl|Queue|Mail",
		},
		{
			name:     "commas are not allowed inside a path",
			segments: []string{"Custom Metrics", "a,b"},
			want:     "Custom Metrics|a b",
		},
		{
			name:     "empty segments dropped",
			segments: []string{"", "Process", "  ", "agent"},
			want:     "Process|agent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, JoinPath(tt.segments...))
		})
	}
}

func TestEmitAll(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ms := []Metric{
		{Path: JoinPath(DefaultPrefix, "Process", "machineagent"), Value: 1},
		{Path: JoinPath(DefaultPrefix, "Service", "sshd"), Value: 0},
	}
	require.NoError(t, EmitAll(&buf, ms))

	want := "name=Custom Metrics|appdctl|Process|machineagent,value=1\n" +
		"name=Custom Metrics|appdctl|Service|sshd,value=0\n"
	assert.Equal(t, want, buf.String())
}
