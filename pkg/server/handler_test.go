package server_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/xstack/pkg/aggregate"
	"github.com/maxgio92/xstack/pkg/report"
	"github.com/maxgio92/xstack/pkg/server"
)

func newAggregator(t *testing.T) *aggregate.Aggregator {
	t.Helper()
	agg := aggregate.New()
	require.NoError(t, agg.Record(aggregate.Path{"main", "parse", "lex"}, 3))
	require.NoError(t, agg.Record(aggregate.Path{"main", "parse", "alloc"}, 2))
	require.NoError(t, agg.Record(aggregate.Path{"main", "eval"}, 1))
	require.NoError(t, agg.FinalizeGraph())

	return agg
}

func newHandler(t *testing.T, opts ...server.Option) *server.Handler {
	t.Helper()
	h, err := server.NewHandler(newAggregator(t), opts...)
	require.NoError(t, err)

	return h
}

func TestNewHandler(t *testing.T) {
	_, err := server.NewHandler(nil)
	require.ErrorIs(t, err, server.ErrNilAggregator)

	_, err = server.NewHandler(aggregate.New())
	require.ErrorIs(t, err, aggregate.ErrNotFinalized)
}

func TestServeRoutes(t *testing.T) {
	tests := []struct {
		route    string
		contains []string
	}{
		{"/", []string{"<h1>Overview</h1>", "Samples: 6<br />", "Stacks: 3<br />", "Frames: 3<br />"}},
		{"/overall", []string{"Frames by overall time", "<td>100.00%</td><td>6</td>", `<a href="/seq/main">main</a>`}},
		{"/self", []string{"Frames by self time", "<td>50.00%</td><td>3</td>", `<a href="/seq/lex">lex</a>`}},
		{"/seqs", []string{"Full Sequences", `<a href="/seq/main;parse;lex">main;parse;lex</a>`}},
		{"/seq/main;parse", []string{"<h1>Sequence</h1>", "<h1>Outgoing</h1>", `<a href="/seq/main;parse;alloc">alloc</a>`, "<td>60.00%</td><td>3</td>"}},
		{"/seq/parse", []string{"<h1>Incoming</h1>", `<a href="/seq/main;parse">main</a>`}},
	}

	h := newHandler(t)
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			resp, err := h.Serve(tt.route)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.Status)
			require.Equal(t, "text/html; charset=utf-8", resp.ContentType)
			require.NotEmpty(t, resp.ETag)

			body := string(resp.Body)
			assert.Contains(t, body, `<a href="/seqs">Sequences</a>`)
			for _, s := range tt.contains {
				assert.Contains(t, body, s)
			}
		})
	}
}

func TestServeDetailWithoutIncoming(t *testing.T) {
	resp, err := newHandler(t).Serve("/seq/main")
	require.NoError(t, err)
	require.NotContains(t, string(resp.Body), "<h1>Incoming</h1>")
	require.Contains(t, string(resp.Body), "<h1>Outgoing</h1>")
}

func TestServeEscapedPath(t *testing.T) {
	agg := aggregate.New()
	require.NoError(t, agg.Record(aggregate.Path{"main", "operator new(unsigned long)"}, 1))
	require.NoError(t, agg.FinalizeGraph())
	h, err := server.NewHandler(agg)
	require.NoError(t, err)

	resp, err := h.Serve("/seq/main;operator%20new(unsigned%20long)")
	require.NoError(t, err)
	require.Contains(t, string(resp.Body), "operator new(unsigned long)")
}

func TestServeErrors(t *testing.T) {
	tests := []struct {
		route  string
		status int
	}{
		{"/nope", http.StatusNotFound},
		{"/seq/", http.StatusNotFound},
		{"/seq/parse;main", http.StatusNotFound},
		{"/seq/unknown", http.StatusNotFound},
		{"/overall?format=xml", http.StatusBadRequest},
	}

	h := newHandler(t)
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			resp, err := h.Serve(tt.route)
			require.Error(t, err)
			require.Equal(t, tt.status, server.StatusCode(err))
			require.NotNil(t, resp)
			require.Equal(t, tt.status, resp.Status)
			require.Empty(t, resp.ETag)
		})
	}
}

func TestServeNotFoundMessage(t *testing.T) {
	resp, err := newHandler(t).Serve("/seq/unknown")

	var notFound *report.NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "unknown", notFound.Path)
	require.Contains(t, string(resp.Body), "No such sequence.")
}

func TestServeJSON(t *testing.T) {
	h := newHandler(t)

	resp, err := h.Serve("/?format=json")
	require.NoError(t, err)
	require.Equal(t, "application/json", resp.ContentType)

	var overview report.Overview
	require.NoError(t, json.Unmarshal(resp.Body, &overview))
	require.Equal(t, report.Overview{Samples: 6, Stacks: 3, Frames: 3}, overview)

	resp, err = h.Serve("/seq/main;parse?format=json")
	require.NoError(t, err)

	var detail report.PathDetail
	require.NoError(t, json.Unmarshal(resp.Body, &detail))
	require.Equal(t, "main;parse", detail.Path)
	require.Len(t, detail.Outgoing, 2)

	resp, err = h.Serve("/seq/nope?format=json")
	require.Error(t, err)
	require.Equal(t, "application/json", resp.ContentType)
	require.JSONEq(t, `{"status":404,"error":"No such sequence."}`, string(resp.Body))
}

func TestServeCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newHandler(t, server.WithRegisterer(reg))

	first, err := h.Serve("/overall")
	require.NoError(t, err)
	second, err := h.Serve("/overall")
	require.NoError(t, err)
	require.Same(t, first, second)

	_, _ = h.Serve("/nope")
	_, _ = h.Serve("/nope")

	expected := `
# HELP xstack_server_cache_requests_total Number of rendered view lookups in the response cache.
# TYPE xstack_server_cache_requests_total counter
xstack_server_cache_requests_total{result="hit"} 1
xstack_server_cache_requests_total{result="miss"} 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "xstack_server_cache_requests_total"))
}

func TestServeWithoutCache(t *testing.T) {
	h := newHandler(t, server.WithCacheSize(0))

	first, err := h.Serve("/overall")
	require.NoError(t, err)
	second, err := h.Serve("/overall")
	require.NoError(t, err)
	require.NotSame(t, first, second)
	require.Equal(t, first.ETag, second.ETag)
}
