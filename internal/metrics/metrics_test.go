package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Operations(t *testing.T) {
	c := New()
	c.RecordOperationResult("bt", "capture", "success")
	c.RecordOperationResult("bt", "capture", "success")
	c.RecordOperationResult("bt", "capture", "failure")
	c.RecordError("bt", "capture", "not_supported")
	c.RecordOperationDuration("bt", "capture", 150*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.operations.WithLabelValues("bt", "capture", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("bt", "capture", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.errors.WithLabelValues("bt", "capture", "not_supported")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.operationDuration))
}

func TestCollector_Middleware(t *testing.T) {
	c := New()
	app := fiber.New()
	app.Use(c.Middleware())
	app.Get("/metrics", c.Handler())
	app.Get("/things/:id", func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/things/42", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "/things/:id", "204")))

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gatepay_http_requests_total{method="GET",path="/things/:id",status="204"} 1`)
}
