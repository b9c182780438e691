package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/schemakit/internal/logging"
	"github.com/danmuck/schemakit/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("schemactl", "GET", "/health", 200, 12*time.Millisecond)
	RecordOperation("render", 3*time.Millisecond, true)

	before := testutil.ToFloat64(apiResults.WithLabelValues("POST /api/schemas", "429", "RATE_LIMIT_EXCEEDED"))
	RecordAPIResult("POST /api/schemas", 429, "RATE_LIMIT_EXCEEDED")
	after := testutil.ToFloat64(apiResults.WithLabelValues("POST /api/schemas", "429", "RATE_LIMIT_EXCEEDED"))
	if after-before != 1 {
		t.Fatalf("expected one recorded result, got %v", after-before)
	}

	RecordRateLimit("GET /api/schemas", false)
	if got := testutil.ToFloat64(rateLimitDecisions.WithLabelValues("GET /api/schemas", "false")); got < 1 {
		t.Fatalf("expected a rejection to be counted, got %v", got)
	}
	log.Debug().Msg("observability/metrics: registration idempotent and recording paths executed")
}

func TestRequestLoggerSkipsPrefixes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	r := gin.New()
	r.Use(RequestLogger(logger, "/api/"), RequestMetricsMiddleware("test"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/schemas", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/schemas", nil))
	if buf.Len() != 0 {
		t.Fatalf("api routes must not be logged here, got %s", buf.String())
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if !bytes.Contains(buf.Bytes(), []byte(`"path":"/health"`)) {
		t.Fatalf("expected health request to be logged, got %s", buf.String())
	}
}

func TestInitLoggerTagsApp(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	logger := InitLogger("schemactl", logging.Config{Level: zerolog.InfoLevel, Format: logging.FormatJSON, Out: &buf})
	logger.Info().Msg("store_open")
	if !bytes.Contains(buf.Bytes(), []byte(`"app":"schemactl"`)) {
		t.Fatalf("expected app field, got %s", buf.String())
	}
}
