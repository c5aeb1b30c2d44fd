package report

import (
	"encoding/json"
	"io"

	"github.com/maxgio92/xstack/pkg/aggregate"
)

// Report is the JSON document of a whole aggregation.
type Report struct {
	Overview  Overview   `json:"overview"`
	Overall   []Entry    `json:"overall"`
	Self      []Entry    `json:"self"`
	Sequences []Entry    `json:"sequences"`
	Policy    Truncation `json:"truncation"`
}

type ReportOption func(*Report)

func NewReport(opts ...ReportOption) *Report {
	report := new(Report)
	for _, opt := range opts {
		opt(report)
	}

	return report
}

func WithReportOverview(o Overview) ReportOption {
	return func(r *Report) {
		r.Overview = o
	}
}

func WithReportOverall(entries []Entry) ReportOption {
	return func(r *Report) {
		r.Overall = entries
	}
}

func WithReportSelf(entries []Entry) ReportOption {
	return func(r *Report) {
		r.Self = entries
	}
}

func WithReportSequences(entries []Entry) ReportOption {
	return func(r *Report) {
		r.Sequences = entries
	}
}

func WithReportTruncation(policy Truncation) ReportOption {
	return func(r *Report) {
		r.Policy = policy
	}
}

// FromAggregator builds the report of agg with every ranking cut by policy.
func FromAggregator(agg *aggregate.Aggregator, policy Truncation) *Report {
	overall, _ := policy.Truncate(Overall(agg))
	self, _ := policy.Truncate(Self(agg))
	seqs, _ := policy.Truncate(Sequences(agg))

	return NewReport(
		WithReportOverview(NewOverview(agg)),
		WithReportOverall(overall),
		WithReportSelf(self),
		WithReportSequences(seqs),
		WithReportTruncation(policy),
	)
}

func (r *Report) WriteReport(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}
