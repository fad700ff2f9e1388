package handlers

import (
	"bytes"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"
)

// PrometheusMetrics serves the process metrics in Prometheus text
// exposition format from the default gatherer.
func PrometheusMetrics() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		metricFamilies, err := prometheus.DefaultGatherer.Gather()
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to gather metrics")
			return
		}

		var buf bytes.Buffer
		encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
		for _, mf := range metricFamilies {
			if err := encoder.Encode(mf); err != nil {
				errResponse(ctx, fasthttp.StatusInternalServerError, "failed to encode metrics")
				return
			}
		}

		ctx.SetContentType(string(expfmt.FmtText))
		ctx.Response.Header.Set("Cache-Control", "no-store")
		ctx.SetBody(buf.Bytes())
	}
}

// PipelineStats reports the pipeline counters accumulated since process
// start as JSON, walking the gathered vitalsight_* counter families.
func PipelineStats() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		metricFamilies, err := prometheus.DefaultGatherer.Gather()
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to gather metrics")
			return
		}

		stats := make(map[string]float64)
		for _, mf := range metricFamilies {
			name := mf.GetName()
			if !strings.HasPrefix(name, "vitalsight_") || mf.GetType() != dto.MetricType_COUNTER {
				continue
			}
			short := strings.TrimPrefix(name, "vitalsight_")
			for _, m := range mf.GetMetric() {
				key := short
				for _, l := range m.GetLabel() {
					key += "." + l.GetValue()
				}
				stats[key] = m.GetCounter().GetValue()
			}
		}
		jsonResponse(ctx, stats)
	}
}
