// pkg/probes/queue.go

package probes

import (
	"regexp"
	"strings"
	"time"

	cerr "github.com/cockroachdb/errors"
	"mvdan.cc/sh/v3/shell"

	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/execute"
	"github.com/opsdep/appdctl/pkg/metrics"
)

const defaultQueueTimeout = 30 * time.Second

// QueueProbe runs one external command and reports how many output lines
// matched. The command string is split with shell word rules so quoted
// arguments survive, but nothing is evaluated through an actual shell.
type QueueProbe struct {
	// Command is the full command line, e.g. `mailq` or
	// `sh -c "ls /var/spool/work"`.
	Command string

	// Match, when set, is a regular expression; only matching lines are
	// counted. Empty counts every non-blank line.
	Match string

	// Metric is the path under the prefix. Empty means Queue|Depth.
	Metric string

	// Timeout bounds the command. Zero selects the default.
	Timeout time.Duration
}

// Run executes the probe and returns its single metric.
func (q QueueProbe) Run(rc *appdctl_io.RuntimeContext, prefix string) (metrics.Metric, error) {
	fields, err := shell.Fields(q.Command, nil)
	if err != nil {
		return metrics.Metric{}, cerr.Wrapf(err, "parse queue command %q", q.Command)
	}
	if len(fields) == 0 {
		return metrics.Metric{}, cerr.New("queue command is empty")
	}

	timeout := q.Timeout
	if timeout <= 0 {
		timeout = defaultQueueTimeout
	}

	out, err := execute.Run(rc.Ctx, execute.Options{
		Command: fields[0],
		Args:    fields[1:],
		Capture: true,
		Timeout: timeout,
	})
	if err != nil {
		return metrics.Metric{}, cerr.Wrapf(err, "queue command %q", q.Command)
	}

	count, err := countLines(out, q.Match)
	if err != nil {
		return metrics.Metric{}, err
	}

	metric := q.Metric
	if metric == "" {
		metric = "Queue|Depth"
	}
	return metrics.Metric{
		Path:  metrics.JoinPath(prefix, metric),
		Value: count,
	}, nil
}

// countLines counts non-blank lines, or only those matching pattern.
func countLines(out, pattern string) (int64, error) {
	var re *regexp.Regexp
	if pattern != "" {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return 0, cerr.Wrapf(err, "queue match pattern %q", pattern)
		}
	}

	var count int64
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if re != nil && !re.MatchString(line) {
			continue
		}
		count++
	}
	return count, nil
}
