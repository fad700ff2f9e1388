package handlers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"vitalsight/internal/analytics"
	"vitalsight/internal/config"
	"vitalsight/internal/etl"
	"vitalsight/internal/record"
)

// RunETL triggers a full ETL run. The batch file paths default to the
// configured locations; "patients" and "biometrics" query parameters
// override them per run. Responds with the run summary.
func RunETL(runner *etl.Runner, cfg *config.Config, log *zap.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		patients := cfg.PatientsPath
		if v := string(ctx.QueryArgs().Peek("patients")); v != "" {
			patients = v
		}
		biometrics := cfg.BiometricsPath
		if v := string(ctx.QueryArgs().Peek("biometrics")); v != "" {
			biometrics = v
		}

		summary, err := runner.Run(patients, biometrics)
		if err != nil {
			log.Error("etl run failed", zap.Error(err))
			errResponse(ctx, fasthttp.StatusInternalServerError, "etl run failed: "+err.Error())
			return
		}
		jsonResponse(ctx, summary)
	}
}

type ingestRequest struct {
	Readings []record.RawBiometric `json:"readings"`
}

// IngestReadings accepts a JSON biometric batch and pushes it through the
// same validate → normalize → upsert path as a file-based run. Invalid
// records land in the rejected artifact; only an empty or unparseable body
// is a request error.
func IngestReadings(runner *etl.Runner, log *zap.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var payload ingestRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(payload.Readings) == 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "no readings provided")
			return
		}

		summary, err := runner.RunReadings(payload.Readings)
		if err != nil {
			log.Error("reading ingest failed", zap.Error(err))
			errResponse(ctx, fasthttp.StatusInternalServerError, "ingest failed: "+err.Error())
			return
		}
		ctx.SetStatusCode(fasthttp.StatusAccepted)
		jsonResponse(ctx, summary)
	}
}

// RunAggregation triggers hourly aggregation. Without parameters it
// processes the most recently completed hour; "hour" (RFC 3339) aggregates
// that single bucket, "hours" (int) backfills the last N completed hours.
func RunAggregation(agg *analytics.Aggregator, log *zap.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		now := time.Now().UTC()
		start := now.Truncate(time.Hour).Add(-time.Hour)
		end := start.Add(time.Hour)

		if v := string(ctx.QueryArgs().Peek("hour")); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				errResponse(ctx, fasthttp.StatusBadRequest, "hour must be RFC 3339")
				return
			}
			start = t.UTC().Truncate(time.Hour)
			end = start.Add(time.Hour)
		} else if v := string(ctx.QueryArgs().Peek("hours")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				errResponse(ctx, fasthttp.StatusBadRequest, "hours must be a positive integer")
				return
			}
			end = now.Truncate(time.Hour)
			start = end.Add(-time.Duration(n) * time.Hour)
		}

		summary, err := agg.AggregateWindow(start, end)
		if err != nil {
			log.Error("aggregation run failed", zap.Error(err))
			errResponse(ctx, fasthttp.StatusInternalServerError, "aggregation failed: "+err.Error())
			return
		}
		jsonResponse(ctx, map[string]any{
			"window_start":     start.Format(time.RFC3339),
			"window_end":       end.Format(time.RFC3339),
			"readings_scanned": summary.ReadingsScanned,
			"buckets_upserted": summary.BucketsUpserted,
		})
	}
}

// RunTrends triggers trend classification over all patient/metric series.
func RunTrends(cls *analytics.Classifier, log *zap.Logger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		summary, err := cls.ClassifyAll()
		if err != nil {
			log.Error("trend run failed", zap.Error(err))
			errResponse(ctx, fasthttp.StatusInternalServerError, "trend classification failed: "+err.Error())
			return
		}
		jsonResponse(ctx, summary)
	}
}
