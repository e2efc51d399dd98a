package output

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"dupfinder/config"
	"dupfinder/logger"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otelLog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// otelLogger mirrors report records as OTLP log records. A nil *otelLogger
// discards everything.
type otelLogger struct {
	provider     *sdklog.LoggerProvider
	logger       otelLog.Logger
	timeout      time.Duration
	endpoint     string
	includePaths bool
}

func newOtelLogger(cfg *config.Config) (*otelLogger, error) {
	endpoint := resolveOtelEndpoint(cfg)
	if endpoint == "" {
		return nil, nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("otel endpoint must include scheme (http or https)")
	}

	opts := []otlploghttp.Option{otlploghttp.WithEndpointURL(endpoint)}
	if len(cfg.OtelHeaders) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(cfg.OtelHeaders))
	}
	if cfg.OtelTimeout > 0 {
		opts = append(opts, otlploghttp.WithTimeout(cfg.OtelTimeout))
	}
	exp, err := otlploghttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	serviceName := cfg.OtelServiceName
	if serviceName == "" {
		serviceName = "dupfinder"
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	)
	return &otelLogger{
		provider:     provider,
		logger:       provider.Logger("dupfinder"),
		timeout:      cfg.OtelTimeout,
		endpoint:     endpoint,
		includePaths: cfg.OtelExportPaths,
	}, nil
}

func resolveOtelEndpoint(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	if endpoint := strings.TrimSpace(cfg.OtelEndpoint); endpoint != "" {
		return endpoint
	}
	if !cfg.OtelFromEnv {
		return ""
	}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT")); endpoint != "" {
		return endpoint
	}
	return strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
}

func (o *otelLogger) Endpoint() string {
	if o == nil {
		return ""
	}
	return o.endpoint
}

func (o *otelLogger) EmitSearch(meta Metadata) {
	if o == nil {
		return
	}
	o.emit("search", searchAttributes(meta, o.includePaths))
}

func (o *otelLogger) EmitGroup(g group) {
	if o == nil {
		return
	}
	o.emit("group", groupAttributes(g, o.includePaths))
}

func (o *otelLogger) EmitSummary(s Summary) {
	if o == nil {
		return
	}
	o.emit("summary", summaryAttributes(s))
}

func searchAttributes(meta Metadata, includePaths bool) []otelLog.KeyValue {
	attrs := []otelLog.KeyValue{
		otelLog.String("dupfinder.method", meta.Method),
		otelLog.Int("dupfinder.paths.count", len(meta.Paths)),
	}
	if meta.HashType != "" {
		attrs = append(attrs, otelLog.String("dupfinder.hash_type", meta.HashType))
	}
	if includePaths {
		attrs = append(attrs, otelLog.Slice("dupfinder.paths", stringValues(meta.Paths)...))
	}
	return attrs
}

// groupAttributes never carries paths unless includePaths is set.
func groupAttributes(g group, includePaths bool) []otelLog.KeyValue {
	wasted := int64(0)
	if len(g.Entries) > 1 {
		wasted = int64(g.Size) * int64(len(g.Entries)-1)
	}
	attrs := []otelLog.KeyValue{
		otelLog.Int("dupfinder.group.index", g.Index),
		otelLog.Int64("dupfinder.group.file_size", int64(g.Size)),
		otelLog.Int("dupfinder.group.files", len(g.Entries)),
		otelLog.Int64("dupfinder.group.wasted_space", wasted),
	}
	if len(g.Entries) > 0 && g.Entries[0].Hash != "" {
		attrs = append(attrs, otelLog.String("dupfinder.group.hash", g.Entries[0].Hash))
	}
	if includePaths {
		paths := make([]string, len(g.Entries))
		for i, e := range g.Entries {
			paths[i] = e.Path
		}
		attrs = append(attrs, otelLog.Slice("file.paths", stringValues(paths)...))
	}
	return attrs
}

func summaryAttributes(s Summary) []otelLog.KeyValue {
	attrs := []otelLog.KeyValue{
		otelLog.String("dupfinder.status", s.Status),
		otelLog.Int("dupfinder.scanned_files", s.ScannedFiles),
		otelLog.Int("dupfinder.groups", s.Groups),
		otelLog.Int("dupfinder.total_files", s.TotalFiles),
		otelLog.Int64("dupfinder.wasted_space", int64(s.WastedSpace)),
	}
	if a := s.Action; a != nil {
		attrs = append(attrs,
			otelLog.String("dupfinder.action", a.Action),
			otelLog.Bool("dupfinder.action.dry_run", a.DryRun),
			otelLog.Int("dupfinder.action.succeeded", a.Succeeded),
			otelLog.Int("dupfinder.action.failed", a.Failed),
			otelLog.Int64("dupfinder.action.bytes", int64(a.Bytes)),
		)
	}
	return attrs
}

func (o *otelLogger) emit(recordType string, attrs []otelLog.KeyValue) {
	if o == nil || o.logger == nil {
		return
	}
	now := time.Now()
	var record otelLog.Record
	record.SetTimestamp(now)
	record.SetObservedTimestamp(now)
	record.SetEventName("dupfinder." + recordType)
	record.SetSeverity(otelLog.SeverityInfo)
	record.SetBody(otelLog.StringValue(recordType))
	record.AddAttributes(
		otelLog.String("record_type", recordType),
		otelLog.String("schema_version", SchemaVersion),
	)
	record.AddAttributes(attrs...)
	o.logger.Emit(context.Background(), record)
}

func (o *otelLogger) Shutdown() {
	if o == nil || o.provider == nil {
		return
	}
	timeout := o.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := o.provider.Shutdown(ctx); err != nil {
		logger.Debugf("OTEL shutdown failed: %v", err)
	}
}

func stringValues(items []string) []otelLog.Value {
	values := make([]otelLog.Value, len(items))
	for i, item := range items {
		values[i] = otelLog.StringValue(item)
	}
	return values
}
