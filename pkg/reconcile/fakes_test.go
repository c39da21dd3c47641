package reconcile

import (
	"context"
	"io"
	"sync"

	"github.com/squareup/reconcile/pkg/metrics"
	"github.com/squareup/reconcile/pkg/table"
)

// scriptedOperator answers from fixed scripts and reports io.EOF
// once a script runs out. A field answer may be an error.
type scriptedOperator struct {
	rows       []RowDecision
	fields     []interface{}
	rowCalls   int
	fieldCalls int
	asked      []string
}

func (o *scriptedOperator) DecideRow(_ context.Context, entityID string, _ []Candidate) (RowDecision, error) {
	o.rowCalls++
	if len(o.rows) == 0 {
		return SkipRow, io.EOF
	}
	d := o.rows[0]
	o.rows = o.rows[1:]
	return d, nil
}

func (o *scriptedOperator) DecideField(_ context.Context, entityID string, c Candidate) (Decision, error) {
	o.fieldCalls++
	o.asked = append(o.asked, entityID+"."+c.Field)
	if len(o.fields) == 0 {
		return Skip, io.EOF
	}
	answer := o.fields[0]
	o.fields = o.fields[1:]
	if err, ok := answer.(error); ok {
		return Skip, err
	}
	return answer.(Decision), nil
}

type appliedUpdate struct {
	entityID string
	field    string
	value    table.Datum
}

type recordingApplier struct {
	calls []appliedUpdate
	fail  map[string]error
}

func (a *recordingApplier) Apply(_ context.Context, entityID, field string, value table.Datum) (int64, error) {
	a.calls = append(a.calls, appliedUpdate{entityID: entityID, field: field, value: value})
	if err := a.fail[field]; err != nil {
		return 0, err
	}
	return 1, nil
}

func (a *recordingApplier) fields() []string {
	var fields []string
	for _, c := range a.calls {
		fields = append(fields, c.field)
	}
	return fields
}

type banner struct {
	row      int
	entityID string
}

type recordingReporter struct {
	banners     []banner
	differences []Candidate
	ends        map[string]int
	summaries   []Stats
}

func (r *recordingReporter) Banner(row int, entityID string) {
	r.banners = append(r.banners, banner{row: row, entityID: entityID})
}

func (r *recordingReporter) Difference(c Candidate) {
	r.differences = append(r.differences, c)
}

func (r *recordingReporter) EndDiff(entityID string, count int) {
	if r.ends == nil {
		r.ends = make(map[string]int)
	}
	r.ends[entityID] = count
}

func (r *recordingReporter) Summary(stats Stats) {
	r.summaries = append(r.summaries, stats)
}

type recordingSink struct {
	sync.Mutex
	values map[string]float64
}

func (s *recordingSink) Send(_ context.Context, m *metrics.Metrics) error {
	s.Lock()
	defer s.Unlock()
	s.values = make(map[string]float64)
	for _, v := range m.Values {
		s.values[v.Name] = v.Value
	}
	return nil
}
