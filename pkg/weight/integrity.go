package weight

import (
	"context"
	"fmt"
	"slices"
)

// maxReportedGaps bounds Report.Gaps for groups with very sparse weights.
const maxReportedGaps = 100

// Report describes the weights of one group. Producing it never writes.
type Report struct {
	Size       int      `json:"size" yaml:"size"`
	Max        int64    `json:"max" yaml:"max"`
	Duplicates []int64  `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Gaps       []int64  `json:"gaps,omitempty" yaml:"gaps,omitempty"`
	Warnings   []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Dense reports whether the weights are exactly 1..Size.
func (r Report) Dense() bool {
	return len(r.Duplicates) == 0 && len(r.Gaps) == 0 && len(r.Warnings) == 0 && r.Max == int64(r.Size)
}

// CheckWeights builds a report from the weights of one group, in any order.
func CheckWeights(weights []int64) Report {
	r := Report{Size: len(weights)}
	if len(weights) == 0 {
		return r
	}

	sorted := slices.Clone(weights)
	slices.Sort(sorted)
	r.Max = sorted[len(sorted)-1]

	for i, w := range sorted {
		if w < 1 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("non-positive weight %d", w))
		}
		if i > 0 && w == sorted[i-1] && (len(r.Duplicates) == 0 || r.Duplicates[len(r.Duplicates)-1] != w) {
			r.Duplicates = append(r.Duplicates, w)
		}
	}

	next := int64(1)
	truncated := false
	for _, w := range sorted {
		for ; next < w; next++ {
			if len(r.Gaps) == maxReportedGaps {
				truncated = true
				break
			}
			r.Gaps = append(r.Gaps, next)
		}
		if w >= next {
			next = w + 1
		}
	}
	if truncated {
		r.Warnings = append(r.Warnings, fmt.Sprintf("more than %d gaps, list truncated", maxReportedGaps))
	}
	return r
}

// Inspect reports on rec's group without repairing it.
func (m *Manager) Inspect(ctx context.Context, rec Record) (Report, error) {
	if rec == nil {
		return Report{}, ErrNilRecord
	}
	return m.inspect(ctx, groupOf(rec))
}

// InspectGroup is Inspect addressed by group key. A nil key is the null group.
func (m *Manager) InspectGroup(ctx context.Context, key any) (Report, error) {
	return m.inspect(ctx, group{value: key, present: key != nil})
}

func (m *Manager) inspect(ctx context.Context, g group) (Report, error) {
	recs, err := m.store.Find(ctx, m.scope(g, Query{}))
	if err != nil {
		return Report{}, fmt.Errorf("load group %s: %w", g, err)
	}
	weights := make([]int64, len(recs))
	for i, r := range recs {
		weights[i] = r.GetWeight()
	}
	return CheckWeights(weights), nil
}
