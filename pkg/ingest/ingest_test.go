package ingest_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/xstack/pkg/aggregate"
	"github.com/maxgio92/xstack/pkg/frame"
	"github.com/maxgio92/xstack/pkg/ingest"
)

const perfScript = `app 1234 100.000001: 10101 cycles:
	4005d0 A+0x10 (/bin/app)
	4005e0 B+0x4 (/bin/app)
	4005f0 C (/bin/app)

app 1234 100.000002: 10101 cycles:
	4005d0 A+0x12 (/bin/app)
	4005e0 B+0x8 (/bin/app)
	4005f0 C+0x1 (/bin/app)

`

func newIngestor(t *testing.T, opts ...ingest.Option) (*ingest.Ingestor, *aggregate.Aggregator) {
	t.Helper()
	agg := aggregate.New()
	logger := zerolog.New(zerolog.NewTestWriter(t))
	opts = append([]ingest.Option{ingest.WithAggregator(agg), ingest.WithLogger(logger)}, opts...)

	return ingest.NewIngestor(opts...), agg
}

func overall(t *testing.T, agg *aggregate.Aggregator, path string) uint64 {
	t.Helper()
	c, ok := agg.Overall(aggregate.ParsePath(path))
	require.True(t, ok, "path %q not found", path)

	return c
}

func TestReadRawTwoIdenticalSamples(t *testing.T) {
	ing, agg := newIngestor(t)

	require.NoError(t, ing.ReadRaw(context.Background(), strings.NewReader(perfScript)))
	require.NoError(t, agg.FinalizeGraph())

	require.EqualValues(t, 2, ing.Samples())
	require.EqualValues(t, 2, agg.Total())
	require.EqualValues(t, 2, agg.Trace(aggregate.ParsePath("C;B;A")))
	require.EqualValues(t, 2, agg.Self("A"))
	require.EqualValues(t, 2, overall(t, agg, "C"))
	require.EqualValues(t, 2, overall(t, agg, "C;B"))
	require.EqualValues(t, 2, overall(t, agg, "C;B;A"))
	require.NoError(t, agg.Check())
}

func TestIngestRawSampleCycle(t *testing.T) {
	ing, agg := newIngestor(t)

	err := ing.IngestRawSample([]string{
		"1 X (/bin/app)",
		"2 Y (/bin/app)",
		"3 X (/bin/app)",
		"4 Y (/bin/app)",
	})
	require.NoError(t, err)

	require.EqualValues(t, 1, agg.Trace(aggregate.ParsePath("Y;X")))
	require.EqualValues(t, 1, agg.Self("X"))
	require.EqualValues(t, 1, agg.Stats().Traces)
}

func TestIngestRawSampleEmpty(t *testing.T) {
	ing, agg := newIngestor(t)

	require.NoError(t, ing.IngestRawSample(nil))
	require.Zero(t, agg.Total())
	require.Zero(t, ing.Samples())
}

func TestIngestRawSampleMalformedIsAtomic(t *testing.T) {
	ing, agg := newIngestor(t)

	err := ing.IngestRawSample([]string{"1 ok (/bin/app)", "broken"})
	require.Error(t, err)

	var malformed *frame.MalformedRecordError
	require.True(t, errors.As(err, &malformed))
	require.Zero(t, agg.Total())
	require.Zero(t, agg.Stats().Paths)
}

func TestIngestWithoutAggregator(t *testing.T) {
	ing := ingest.NewIngestor()
	require.ErrorIs(t, ing.IngestRawSample([]string{"1 a (m)"}), ingest.ErrAggregatorNil)
	require.ErrorIs(t, ing.IngestAggregatedLine(1, aggregate.ParsePath("a")), ingest.ErrAggregatorNil)
}

func TestReadRawEdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		samples uint64
		traces  map[string]uint64
	}{
		{
			name:    "no trailing blank line",
			input:   "hdr\n\t1 leaf (m)\n\t2 root (m)",
			samples: 1,
			traces:  map[string]uint64{"root;leaf": 1},
		},
		{
			name:    "sample without frames is ignored",
			input:   "hdr\n\nhdr\n\t1 leaf (m)\n\n",
			samples: 1,
			traces:  map[string]uint64{"leaf": 1},
		},
		{
			name:    "several blank lines",
			input:   "\n\n\t1 a (m)\n\n\n\t1 b (m)\n\n",
			samples: 2,
			traces:  map[string]uint64{"a": 1, "b": 1},
		},
		{
			name:    "space indented records",
			input:   "hdr\n    1 f+0x1 (m)\n    2 f+0x2 (m)\n    3 main (m)\n\n",
			samples: 1,
			traces:  map[string]uint64{"main;f": 1},
		},
		{
			name:    "empty input",
			input:   "",
			samples: 0,
			traces:  map[string]uint64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing, agg := newIngestor(t)
			require.NoError(t, ing.ReadRaw(context.Background(), strings.NewReader(tt.input)))
			require.Equal(t, tt.samples, agg.Total())
			require.Equal(t, len(tt.traces), agg.Stats().Traces)
			for trace, count := range tt.traces {
				require.Equal(t, count, agg.Trace(aggregate.ParsePath(trace)), trace)
			}
		})
	}
}

func TestReadRawMalformedRecord(t *testing.T) {
	ing, agg := newIngestor(t)
	input := "hdr\n\t1 a (m)\n\n\t1 a (m)\n\tbroken\n\n"

	err := ing.ReadRaw(context.Background(), strings.NewReader(input))
	require.Error(t, err)

	var parseErr *ingest.ParseError
	require.True(t, errors.As(err, &parseErr))
	require.Equal(t, 5, parseErr.Line)
	require.Equal(t, "\tbroken", parseErr.Text)

	var malformed *frame.MalformedRecordError
	require.True(t, errors.As(err, &malformed))
	require.EqualValues(t, 1, agg.Total(), "samples before the failure are kept")
}

func TestReadAggregated(t *testing.T) {
	ing, agg := newIngestor(t)
	input := "3 main;f;g\n\n2 main;f\n1 main;f;g\n"

	require.NoError(t, ing.ReadAggregated(context.Background(), strings.NewReader(input)))

	require.EqualValues(t, 6, agg.Total())
	require.EqualValues(t, 4, agg.Trace(aggregate.ParsePath("main;f;g")))
	require.EqualValues(t, 6, overall(t, agg, "main;f"))
	require.EqualValues(t, 4, agg.Self("g"))
	require.EqualValues(t, 3, ing.Samples())
}

func TestParseAggregatedLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		count uint64
		path  aggregate.Path
	}{
		{"plain", "3 main;f", 3, aggregate.Path{"main", "f"}},
		{"tab separated", "3\tmain;f", 3, aggregate.Path{"main", "f"}},
		{"surrounding blanks", "  7  main;f \r", 7, aggregate.Path{"main", "f"}},
		{
			"frames with spaces",
			"1 main;std::vector<int, std::allocator<int> >::push_back",
			1,
			aggregate.Path{"main", "std::vector<int, std::allocator<int> >::push_back"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, path, err := ingest.ParseAggregatedLine(tt.line)
			require.NoError(t, err)
			require.Equal(t, tt.count, count)
			require.Equal(t, tt.path, path)
		})
	}
}

func TestWriteFoldedDemangledRoundTrip(t *testing.T) {
	raw := "hdr\n" +
		"\t4005d0 _ZNSt6vectorIiSaIiEE9push_backERKi+0x1 (/bin/app)\n" +
		"\t4005e0 main+0x4 (/bin/app)\n\n"
	ing, agg := newIngestor(t, ingest.WithNormalizer(frame.NewNormalizer(frame.WithDemangle(true))))
	require.NoError(t, ing.ReadRaw(context.Background(), strings.NewReader(raw)))

	var out bytes.Buffer
	require.NoError(t, ingest.WriteFolded(&out, agg))
	require.Equal(t, "1 main;std::vector<int, std::allocator<int> >::push_back\n", out.String())

	ing2, agg2 := newIngestor(t)
	require.NoError(t, ing2.Read(context.Background(), bytes.NewReader(out.Bytes()), ingest.FormatAuto))
	require.Equal(t, agg.Stats(), agg2.Stats())
	require.EqualValues(t, 1, agg2.Self("std::vector<int, std::allocator<int> >::push_back"))
}

func TestReadAggregatedMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"missing path", "3\n", ingest.ErrMalformedLine},
		{"empty frame", "3 a;;b\n", ingest.ErrMalformedLine},
		{"trailing separator", "3 a;\n", ingest.ErrMalformedLine},
		{"leading separator", "3 ;a\n", ingest.ErrMalformedLine},
		{"negative count", "-1 a\n", ingest.ErrMalformedCount},
		{"zero count", "0 a\n", ingest.ErrMalformedCount},
		{"not a number", "x a\n", ingest.ErrMalformedCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing, agg := newIngestor(t)
			err := ing.ReadAggregated(context.Background(), strings.NewReader("1 ok\n"+tt.input))

			var parseErr *ingest.ParseError
			require.True(t, errors.As(err, &parseErr))
			require.Equal(t, 2, parseErr.Line)
			require.ErrorIs(t, err, tt.want)
			require.EqualValues(t, 1, agg.Total())
		})
	}
}

func TestReadCanceled(t *testing.T) {
	ing, _ := newIngestor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ing.ReadAggregated(ctx, strings.NewReader("1 a\n"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  ingest.Format
	}{
		{"perf script", []byte(perfScript), ingest.FormatRaw},
		{"perf script leading blank", []byte("\n\n\t1 a (m)\n"), ingest.FormatRaw},
		{"folded", []byte("12 main;f\n3 main\n"), ingest.FormatFolded},
		{"folded with spaces", []byte("1 main;operator new(unsigned long)\n"), ingest.FormatFolded},
		{"empty", []byte{}, ingest.FormatRaw},
		{"binary", []byte{0x0a, 0x04, 0x08, 0x01, 0x10, 0x02}, ingest.FormatPprof},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, got, err := ingest.Detect(bytes.NewReader(tt.input))
			require.NoError(t, err)
			require.Equal(t, tt.want, got)

			var rest bytes.Buffer
			_, err = rest.ReadFrom(r)
			require.NoError(t, err)
			require.Equal(t, tt.input, rest.Bytes(), "sniffing must not consume input")
		})
	}
}

func TestReadGzipFolded(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("5 main;work\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	ing, agg := newIngestor(t)
	require.NoError(t, ing.Read(context.Background(), &buf, ingest.FormatAuto))
	require.EqualValues(t, 5, agg.Trace(aggregate.ParsePath("main;work")))
}

func writeProfile(t *testing.T, p *profile.Profile) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, p.Write(&buf))

	return &buf
}

func TestReadPprof(t *testing.T) {
	mainFn := &profile.Function{ID: 1, Name: "main"}
	recFn := &profile.Function{ID: 2, Name: "rec"}
	inlFn := &profile.Function{ID: 3, Name: "inlined"}
	mainLoc := &profile.Location{ID: 1, Address: 0x10, Line: []profile.Line{{Function: mainFn}}}
	recLoc := &profile.Location{ID: 2, Address: 0x20, Line: []profile.Line{{Function: inlFn}, {Function: recFn}}}
	bareLoc := &profile.Location{ID: 3, Address: 0x30}

	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "samples", Unit: "count"}, {Type: "cpu", Unit: "nanoseconds"}},
		Function:   []*profile.Function{mainFn, recFn, inlFn},
		Location:   []*profile.Location{mainLoc, recLoc, bareLoc},
		Sample: []*profile.Sample{
			{Location: []*profile.Location{recLoc, recLoc, mainLoc}, Value: []int64{2, 20000000}},
			{Location: []*profile.Location{bareLoc, mainLoc}, Value: []int64{1, 10000000}},
			{Location: []*profile.Location{mainLoc}, Value: []int64{0, 0}},
		},
	}

	ing, agg := newIngestor(t)
	require.NoError(t, ing.Read(context.Background(), writeProfile(t, p), ingest.FormatAuto))

	require.EqualValues(t, 3, agg.Total(), "weights are sample counts, not nanoseconds")
	require.EqualValues(t, 2, agg.Trace(aggregate.ParsePath("main;rec;inlined")))
	require.EqualValues(t, 1, agg.Trace(aggregate.ParsePath("main;0x30")))
	require.Zero(t, agg.Trace(aggregate.ParsePath("main")))
	require.EqualValues(t, 2, ing.Samples())
}

func TestReadPprofWeight(t *testing.T) {
	fn := &profile.Function{ID: 1, Name: "main"}
	loc := &profile.Location{ID: 1, Line: []profile.Line{{Function: fn}}}

	tests := []struct {
		name        string
		sampleTypes []*profile.ValueType
		defaultType string
		values      []int64
		want        uint64
	}{
		{
			"count unit wins",
			[]*profile.ValueType{{Type: "cpu", Unit: "nanoseconds"}, {Type: "samples", Unit: "count"}},
			"cpu",
			[]int64{10000000, 1},
			1,
		},
		{
			"default sample type",
			[]*profile.ValueType{{Type: "alloc_space", Unit: "bytes"}, {Type: "inuse_space", Unit: "bytes"}},
			"inuse_space",
			[]int64{1024, 512},
			512,
		},
		{
			"first sample type",
			[]*profile.ValueType{{Type: "alloc_space", Unit: "bytes"}, {Type: "inuse_space", Unit: "bytes"}},
			"",
			[]int64{1024, 512},
			1024,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &profile.Profile{
				SampleType:        tt.sampleTypes,
				DefaultSampleType: tt.defaultType,
				Function:          []*profile.Function{fn},
				Location:          []*profile.Location{loc},
				Sample:            []*profile.Sample{{Location: []*profile.Location{loc}, Value: tt.values}},
			}

			ing, agg := newIngestor(t)
			require.NoError(t, ing.ReadPprof(context.Background(), writeProfile(t, p)))
			require.Equal(t, tt.want, agg.Total())
		})
	}
}

func TestReadPprofFunctionNames(t *testing.T) {
	mainFn := &profile.Function{ID: 1, Name: "main"}
	opFn := &profile.Function{ID: 2, Name: "operator+"}
	mangledFn := &profile.Function{ID: 3, Name: "_ZN3foo3barEv"}
	mainLoc := &profile.Location{ID: 1, Line: []profile.Line{{Function: mainFn}}}
	opLoc := &profile.Location{ID: 2, Line: []profile.Line{{Function: opFn}}}
	mangledLoc := &profile.Location{ID: 3, Line: []profile.Line{{Function: mangledFn}}}

	p := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "samples", Unit: "count"}},
		Function:   []*profile.Function{mainFn, opFn, mangledFn},
		Location:   []*profile.Location{mainLoc, opLoc, mangledLoc},
		Sample: []*profile.Sample{
			{Location: []*profile.Location{opLoc, mainLoc}, Value: []int64{1}},
			{Location: []*profile.Location{mangledLoc, mainLoc}, Value: []int64{1}},
		},
	}

	t.Run("names are kept as is", func(t *testing.T) {
		ing, agg := newIngestor(t)
		require.NoError(t, ing.ReadPprof(context.Background(), writeProfile(t, p)))
		require.EqualValues(t, 1, agg.Self("operator+"))
		require.EqualValues(t, 1, agg.Self("_ZN3foo3barEv"))
	})

	t.Run("names are demangled", func(t *testing.T) {
		ing, agg := newIngestor(t, ingest.WithNormalizer(frame.NewNormalizer(frame.WithDemangle(true))))
		require.NoError(t, ing.ReadPprof(context.Background(), writeProfile(t, p)))
		require.EqualValues(t, 1, agg.Self("operator+"))
		require.EqualValues(t, 1, agg.Self("foo::bar"))
	})
}

func TestWriteFolded(t *testing.T) {
	ing, agg := newIngestor(t)
	require.NoError(t, ing.ReadRaw(context.Background(), strings.NewReader(perfScript+"hdr\n\t1 Z (m)\n\n")))

	var out bytes.Buffer
	require.NoError(t, ingest.WriteFolded(&out, agg))
	require.Equal(t, "2 C;B;A\n1 Z\n", out.String())

	ing2, agg2 := newIngestor(t)
	require.NoError(t, ing2.ReadAggregated(context.Background(), &out))
	require.Equal(t, agg.Stats(), agg2.Stats())
}

func TestParseFormat(t *testing.T) {
	for _, name := range ingest.Formats() {
		f, err := ingest.ParseFormat(name)
		require.NoError(t, err)
		require.Equal(t, name, f.String())
	}

	_, err := ingest.ParseFormat("xml")
	require.ErrorIs(t, err, ingest.ErrUnknownFormat)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ing, _ := newIngestor(t, ingest.WithRegisterer(reg))

	require.NoError(t, ing.ReadAggregated(context.Background(), strings.NewReader("4 a;b\n1 a\n")))

	count, err := testutil.GatherAndCount(reg, "xstack_ingest_samples_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	expected := `
# HELP xstack_ingest_sample_weight_total Sum of the weights of the ingested stack samples.
# TYPE xstack_ingest_sample_weight_total counter
xstack_ingest_sample_weight_total{format="folded"} 5
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "xstack_ingest_sample_weight_total"))
}
