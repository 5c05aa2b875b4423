// pkg/probes/service.go

package probes

import (
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/metrics"
	"github.com/opsdep/appdctl/pkg/systemctl"
)

// ProbeServices emits one metric per unit: 1 when systemd reports it
// active, 0 for any other state. A query failure counts as not active;
// the probe keeps going so one broken unit cannot hide the rest.
func ProbeServices(rc *appdctl_io.RuntimeContext, sys systemctl.Client, prefix string, specs []ServiceSpec) []metrics.Metric {
	logger := otelzap.Ctx(rc.Ctx)

	out := make([]metrics.Metric, 0, len(specs))
	for _, spec := range specs {
		var value int64
		state, err := sys.ActiveState(rc.Ctx, spec.Name)
		if err != nil {
			logger.Warn("Service state query failed",
				zap.String("unit", spec.Name), zap.Error(err))
		} else if state == "active" {
			value = 1
		}
		logger.Debug("Service probe",
			zap.String("unit", spec.Name),
			zap.String("state", state),
			zap.Int64("value", value))
		out = append(out, metrics.Metric{
			Path:  serviceMetricPath(prefix, spec),
			Value: value,
		})
	}
	return out
}

func serviceMetricPath(prefix string, spec ServiceSpec) string {
	if spec.Metric != "" {
		return metrics.JoinPath(prefix, spec.Metric)
	}
	return metrics.JoinPath(prefix, "Service", spec.Name)
}
