package server

import (
	"errors"
	"strconv"
	"time"

	"hivefeed/db"
	"hivefeed/feeds"
	"hivefeed/rshares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

type ServerConfig struct {

	// The engine serving ranked feeds and comment listings
	Engine *feeds.Engine

	// The maintainer behind the manual aggregation trigger
	Maintainer *rshares.Maintainer
}

// Returns a fiber.App instance to be used as an HTTP server for the feed API
func Server(config *ServerConfig) *fiber.App {

	app := fiber.New()

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		// start timer
		start := time.Now()

		// next routes
		err := c.Next()

		// stop timer
		stop := time.Now()

		// Diff
		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"latency": stop.Sub(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/feed/:strategy", func(c *fiber.Ctx) error {
		strategy := c.Params("strategy")
		tag := c.Query("tag", "")
		author := c.Query("author", "")
		permlink := c.Query("permlink", "")

		limit, err := strconv.Atoi(c.Query("limit", "20"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid limit")
		}

		posts, err := config.Engine.RankedFeed(c.Context(), strategy, tag, author, permlink, limit)
		if err != nil {
			return sendError(c, err)
		}
		return c.JSON(posts)
	})

	app.Get("/comments/:author", func(c *fiber.Ctx) error {
		author := c.Params("author")
		permlink := c.Query("permlink", "")

		limit, err := strconv.Atoi(c.Query("limit", "20"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid limit")
		}

		posts, err := config.Engine.AuthorComments(c.Context(), author, permlink, limit)
		if err != nil {
			return sendError(c, err)
		}
		return c.JSON(posts)
	})

	// Manual aggregation trigger, mirrors the recompute CLI command
	app.Post("/aggregate", func(c *fiber.Ctx) error {
		first, err := strconv.ParseInt(c.Query("first", ""), 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid first block")
		}
		last, err := strconv.ParseInt(c.Query("last", ""), 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid last block")
		}

		res, err := config.Maintainer.Recompute(c.Context(), first, last)
		if err != nil {
			return sendError(c, err)
		}
		return c.JSON(res)
	})

	return app
}

func sendError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, db.ErrPostNotFound), errors.Is(err, db.ErrTagNotFound):
		return c.Status(fiber.StatusNotFound).SendString(err.Error())
	case errors.Is(err, feeds.ErrUnknownStrategy),
		errors.Is(err, feeds.ErrInvalidLimit),
		errors.Is(err, rshares.ErrInvalidRange):
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	default:
		log.WithFields(log.Fields{
			"error": err,
		}).Error("Error serving request")
		return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
	}
}
