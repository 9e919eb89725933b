package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/john-rice/gitbutler/cmd/branches/container"
	authmw "github.com/john-rice/gitbutler/cmd/branches/middleware"
	"github.com/john-rice/gitbutler/cmd/branches/routes"
	"github.com/john-rice/gitbutler/common/config"
	"github.com/john-rice/gitbutler/common/logger"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load("branches")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	log.Info("initializing service",
		"service", cfg.Service.Name,
		"environment", cfg.Service.Environment,
		"backend", cfg.Storage.Backend,
	)

	// Initialize component container (singleton pattern - everything created once)
	c, err := container.NewContainer(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize container: %v\n", err)
		os.Exit(1)
	}
	defer c.Shutdown()

	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e)
	routes.RegisterBranchRoutes(e, c)

	startServer(e, c)
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(authmw.ExtractUsername())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "ok",
			"service": "branches",
		})
	})
}

// startServer starts the Echo server on the configured port
func startServer(e *echo.Echo, c *container.Container) {
	port := c.Config.Service.Port
	c.Logger.Info("Starting branches service", "port", port)

	if err := e.Start(fmt.Sprintf(":%d", port)); err != nil {
		c.Logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
