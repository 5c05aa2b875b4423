// pkg/metrics/metrics.go

// Package metrics formats custom metric lines for ingestion by the Machine
// Agent, which scrapes script stdout. One line per observation:
//
//	name=Custom Metrics|appdctl|Process|machineagent,value=1
package metrics

import (
	"fmt"
	"io"
	"strings"
)

// DefaultPrefix roots probe metrics under the agent's custom metrics tree.
const DefaultPrefix = "Custom Metrics|appdctl"

// Metric is one named integer observation.
type Metric struct {
	Path  string
	Value int64
}

// String renders the exact line format the agent consumes.
func (m Metric) String() string {
	return fmt.Sprintf("name=%s,value=%d", m.Path, m.Value)
}

// JoinPath builds a hierarchical metric path. Segments are cleaned of the
// two structural characters ("|" and ",") and empty segments are dropped.
func JoinPath(segments ...string) string {
	cleaned := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		seg = strings.ReplaceAll(seg, ",", " ")
		for _, part := range strings.Split(seg, "|") {
			part = strings.TrimSpace(part)
			if part != "" {
				cleaned = append(cleaned, part)
			}
		}
	}
	return strings.Join(cleaned, "|")
}

// Emit writes one metric line to w.
func Emit(w io.Writer, m Metric) error {
	_, err := fmt.Fprintln(w, m.String())
	return err
}

// EmitAll writes the metrics in order, stopping at the first write error.
func EmitAll(w io.Writer, ms []Metric) error {
	for _, m := range ms {
		if err := Emit(w, m); err != nil {
			return err
		}
	}
	return nil
}
