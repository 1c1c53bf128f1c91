package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"sensors-api/internal/domain"
	"sensors-api/internal/metrics"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrUnavailable marks a fetch that produced no usable telemetry.
// It never leaves this package's Fetch.
var ErrUnavailable = errors.New("telemetry unavailable")

// Fetcher returns the latest reading for a sensor. It never fails:
// any problem yields an empty sample.
type Fetcher interface {
	Fetch(ctx context.Context, sensorID int64) domain.TelemetrySample
}

// Options configures the monitoring-service client.
type Options struct {
	BaseURL    string
	DataPath   string
	Timeout    time.Duration
	RetryCount int
	Metrics    *metrics.Metrics
}

// Client talks to the monitoring service over HTTP.
type Client struct {
	httpClient *resty.Client
	dataPath   string
	timeout    time.Duration
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewClient creates a monitoring-service client.
func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DataPath == "" {
		opts.DataPath = "/api/v1/sensor/data"
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Accept", "application/json").
		SetLogger(logger.Sugar())

	return &Client{
		httpClient: httpClient,
		dataPath:   opts.DataPath,
		timeout:    opts.Timeout,
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, sensorID int64) domain.TelemetrySample {
	start := time.Now()
	sample, err := c.fetch(ctx, sensorID)
	elapsed := time.Since(start)

	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = metrics.OutcomeTimeout
		}
		c.metrics.ObserveTelemetry(outcome, elapsed)
		c.logger.Warn("Telemetry unavailable, serving record without readings",
			zap.Int64("sensor_id", sensorID),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return domain.TelemetrySample{}
	}

	c.metrics.ObserveTelemetry(metrics.OutcomeOK, elapsed)
	return sample
}

func (c *Client) fetch(ctx context.Context, sensorID int64) (domain.TelemetrySample, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("sensor_id", strconv.FormatInt(sensorID, 10)).
		Get(c.dataPath)
	if err != nil {
		return domain.TelemetrySample{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if resp.IsError() {
		return domain.TelemetrySample{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())
	}

	sample, err := DecodeSample(resp.Body())
	if err != nil {
		return domain.TelemetrySample{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return sample, nil
}

// DecodeSample parses a monitoring-service payload. The body must be a JSON
// object; fields that are missing, null or malformed are left unset.
// value may be a number or a numeric string.
func DecodeSample(body []byte) (domain.TelemetrySample, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.TelemetrySample{}, fmt.Errorf("decode telemetry: %w", err)
	}
	if raw == nil {
		return domain.TelemetrySample{}, errors.New("decode telemetry: body is not an object")
	}

	var sample domain.TelemetrySample
	if v, ok := decodeValue(raw["value"]); ok {
		sample.Value = &v
	}
	if s, ok := decodeString(raw["unit"]); ok && s != "" && utf8.RuneCountInString(s) <= domain.UnitMaxLen {
		sample.Unit = &s
	}
	if s, ok := decodeString(raw["status"]); ok {
		if st, err := domain.ParseSensorStatus(s); err == nil {
			sample.Status = &st
		}
	}
	return sample, nil
}

func decodeValue(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}

	s, ok := decodeString(raw)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func decodeString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
