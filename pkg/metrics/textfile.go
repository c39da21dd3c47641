package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reconcile"

// textfileSink writes metrics in the Prometheus text exposition format,
// for collection by the node_exporter textfile collector.
type textfileSink struct {
	path   string
	labels prometheus.Labels
}

var _ Sink = &textfileSink{}

// NewTextfileSink returns a sink that rewrites path on every Send.
// labels are attached to every metric as constant labels.
func NewTextfileSink(path string, labels map[string]string) *textfileSink {
	return &textfileSink{
		path:   path,
		labels: labels,
	}
}

func (s *textfileSink) Send(ctx context.Context, m *Metrics) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	for _, v := range m.Values {
		var collector prometheus.Collector
		switch v.Type {
		case COUNTER:
			if v.Value < 0 {
				return fmt.Errorf("counter %s can not be negative: %f", v.Name, v.Value)
			}
			c := prometheus.NewCounter(prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        v.Name + "_total",
				Help:        "Reconciliation counter " + v.Name + ".",
				ConstLabels: s.labels,
			})
			c.Add(v.Value)
			collector = c
		case GAUGE:
			g := prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        v.Name,
				Help:        "Reconciliation gauge " + v.Name + ".",
				ConstLabels: s.labels,
			})
			g.Set(v.Value)
			collector = g
		default:
			return fmt.Errorf("invalid metric type: %d, name: %s", v.Type, v.Name)
		}
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return prometheus.WriteToTextfile(s.path, reg)
}
