// pkg/probes/process.go

// Package probes implements the one-shot health probes the Machine Agent
// runs as custom metric scripts: is a process alive, is a service
// active, how deep is a queue. Each probe emits metric lines and nothing
// else on stdout.
package probes

import (
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/metrics"
)

// ProbeProcesses emits one metric per spec: 1 when at least one running
// process matches the name, 0 otherwise. A process matches when its comm
// name equals the spec name or its command line contains it.
func ProbeProcesses(rc *appdctl_io.RuntimeContext, prefix string, specs []ProcessSpec) ([]metrics.Metric, error) {
	logger := otelzap.Ctx(rc.Ctx)

	procs, err := process.ProcessesWithContext(rc.Ctx)
	if err != nil {
		return nil, cerr.Wrap(err, "list processes")
	}

	type procInfo struct {
		name    string
		cmdline string
	}
	infos := make([]procInfo, 0, len(procs))
	for _, p := range procs {
		// Unreadable processes belong to other users; skip them.
		name, err := p.NameWithContext(rc.Ctx)
		if err != nil {
			name = ""
		}
		cmdline, err := p.CmdlineWithContext(rc.Ctx)
		if err != nil {
			cmdline = ""
		}
		if name == "" && cmdline == "" {
			continue
		}
		infos = append(infos, procInfo{name: name, cmdline: cmdline})
	}

	out := make([]metrics.Metric, 0, len(specs))
	for _, spec := range specs {
		var value int64
		for _, info := range infos {
			if matchesProcess(info.name, info.cmdline, spec.Name) {
				value = 1
				break
			}
		}
		logger.Debug("Process probe",
			zap.String("name", spec.Name),
			zap.Int64("value", value))
		out = append(out, metrics.Metric{
			Path:  processMetricPath(prefix, spec),
			Value: value,
		})
	}
	return out, nil
}

func matchesProcess(name, cmdline, want string) bool {
	if want == "" {
		return false
	}
	if strings.EqualFold(name, want) {
		return true
	}
	return strings.Contains(cmdline, want)
}

func processMetricPath(prefix string, spec ProcessSpec) string {
	if spec.Metric != "" {
		return metrics.JoinPath(prefix, spec.Metric)
	}
	return metrics.JoinPath(prefix, "Process", spec.Name)
}
