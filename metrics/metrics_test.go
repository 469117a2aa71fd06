package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveGeneration(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveGeneration("openai/gpt-image-1", "success", 3*time.Second, 0.17)
	m.ObserveGeneration("openai/gpt-image-1", "failure", time.Second, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Generations.WithLabelValues("openai/gpt-image-1", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Generations.WithLabelValues("openai/gpt-image-1", "failure")))
	assert.InDelta(t, 0.17, testutil.ToFloat64(m.GenerationCost.WithLabelValues("openai/gpt-image-1")), 1e-9)
}

func TestMiddleware_CountsRequests(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/api/images/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/images/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "/api/images/:id", "404")))
}
