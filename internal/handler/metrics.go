package handler

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/metrics"
)

// Metrics serves the prometheus registry.
func Metrics() fiber.Handler {
	return adaptor.HTTPHandler(metrics.Handler())
}
