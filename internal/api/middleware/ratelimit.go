/**
 * @description
 * Rate-limit middleware for the query surface.
 * Counts each request against a bucket keyed by caller IP; over-limit
 * requests get a 429 inside the standard envelope. The limiter is
 * cooperative and fails open when Redis is away.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/ratelimit
 */

package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/licitabot/backend/internal/ratelimit"
)

// Limit returns a middleware enforcing the named bucket.
func Limit(limiter *ratelimit.Limiter, bucket string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter != nil && !limiter.Allow(c.Context(), bucket, c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error": fiber.Map{
					"code":    "rate_limited",
					"message": "too many requests",
				},
			})
		}
		return c.Next()
	}
}
