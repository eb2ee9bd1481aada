package metrics

import (
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (O Outcome) String() string {
	return string(O)
}

var (
	once                         sync.Once
	metricsRouter                *chi.Mux
	vaultOperationDuration       *prometheus.HistogramVec
	queueSendErrorCounter        prometheus.Counter
	httpRequestDurationHistogram *prometheus.HistogramVec
	dbLatency                    *prometheus.HistogramVec
	equityValueGauge             prometheus.Gauge
	debtRatioGauge               prometheus.Gauge
	deltaGauge                   prometheus.Gauge
	sharePriceGauge              prometheus.Gauge
)

// Init initializes the metrics package.
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
		registerMetrics()
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	// Create a custom server with timeout settings
	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	// Start the server in a separate goroutine
	go func() {
		log.Printf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics initializes and register the Prometheus metrics.
func registerMetrics() {
	defaultHistogramBucketsSeconds := []float64{0.1, 0.5, 1, 2.5, 5, 10, 30}

	vaultOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vault_operation_duration_seconds",
			Help:    "Histogram of vault operation durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"operation", "status"},
	)

	// add a counter for the number of errors from the fail to push message into queue
	queueSendErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_send_error_count",
			Help: "The total number of errors when sending messages to the queue",
		},
	)

	httpRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of incoming http request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "path", "status"},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "db_latency_seconds",
			Help: "DB latency in seconds splitted by method and execution status",
		},
		[]string{"method", "status"},
	)

	equityValueGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_equity_value",
			Help: "Last observed vault equity value in usd",
		},
	)

	debtRatioGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_debt_ratio",
			Help: "Last observed vault debt ratio",
		},
	)

	deltaGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_delta",
			Help: "Last observed vault delta in usd",
		},
	)

	sharePriceGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_share_price",
			Help: "Last observed value of one vault share in usd",
		},
	)

	prometheus.MustRegister(
		vaultOperationDuration,
		queueSendErrorCounter,
		httpRequestDurationHistogram,
		dbLatency,
		equityValueGauge,
		debtRatioGauge,
		deltaGauge,
		sharePriceGauge,
	)
}

func RecordVaultOperationDuration(d time.Duration, operation string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	vaultOperationDuration.WithLabelValues(operation, status.String()).Observe(d.Seconds())
}

func RecordDbLatency(d time.Duration, method string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	dbLatency.WithLabelValues(method, status.String()).Observe(d.Seconds())
}

// RecordVaultHealth exports the latest health view. The fixed-point values
// are scaled by 1e18 on the ledger side; gauges carry them as plain floats.
func RecordVaultHealth(equityValue, debtRatio, delta, sharePrice sdkmath.Int) {
	equityValueGauge.Set(fixedToFloat(equityValue))
	debtRatioGauge.Set(fixedToFloat(debtRatio))
	deltaGauge.Set(fixedToFloat(delta))
	sharePriceGauge.Set(fixedToFloat(sharePrice))
}

// StartHttpRequestDurationTimer starts a timer to measure incoming request duration.
func StartHttpRequestDurationTimer(method, path string) func(statusCode int) {
	startTime := time.Now()
	return func(statusCode int) {
		duration := time.Since(startTime).Seconds()
		httpRequestDurationHistogram.WithLabelValues(
			method,
			path,
			fmt.Sprintf("%d", statusCode),
		).Observe(duration)
	}
}

func RecordQueueSendError() {
	queueSendErrorCounter.Inc()
}

func fixedToFloat(v sdkmath.Int) float64 {
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(v.BigInt()),
		big.NewFloat(1e18),
	).Float64()
	return f
}
