package bridge

import (
	dto "github.com/prometheus/client_model/go"
)

const opsMetric = "daylist_bridge_ops_total"

// Stats is a snapshot of the bridge counters keyed by operation.
type Stats map[string]OpStats

type OpStats struct {
	OK     int `json:"ok"`
	Errors int `json:"errors"`
}

// Failed sums errors across all operations.
func (s Stats) Failed() int {
	n := 0
	for _, v := range s {
		n += v.Errors
	}
	return n
}

// Stats gathers the counters from the bridge's registry.
func (b *Bridge) Stats() (Stats, error) {
	families, err := b.reg.Gather()
	if err != nil {
		return nil, err
	}
	out := Stats{}
	for _, mf := range families {
		if mf.GetName() != opsMetric {
			continue
		}
		for _, m := range mf.GetMetric() {
			op, result := labels(m)
			s := out[op]
			n := int(m.GetCounter().GetValue())
			if result == resultError {
				s.Errors += n
			} else {
				s.OK += n
			}
			out[op] = s
		}
	}
	return out, nil
}

func labels(m *dto.Metric) (op, result string) {
	for _, lp := range m.GetLabel() {
		switch lp.GetName() {
		case "op":
			op = lp.GetValue()
		case "result":
			result = lp.GetValue()
		}
	}
	return op, result
}
