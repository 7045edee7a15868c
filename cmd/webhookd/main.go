package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"

	"github.com/driftmail/driftmail-go/internal/config"
	"github.com/driftmail/driftmail-go/internal/logger"
	"github.com/driftmail/driftmail-go/pkg/webhook"
)

const maxPayloadBytes = 1 << 20

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file loaded:", err)
	}
	cfg, err := config.Load()
	if err != nil {
		exitErr(err.Error())
	}

	log, closeLog, err := logger.New(cfg.Client.Debug, cfg.Client.LogFile)
	if err != nil {
		exitErr(err.Error())
	}
	defer func() {
		_ = closeLog()
	}()

	processor := webhook.NewProcessor(webhook.Options{
		Logger:           log,
		VerifySignatures: cfg.Webhook.VerifySignatures,
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(log))
	e.Use(middleware.Recover())

	e.POST("/webhooks/driftmail", func(c echo.Context) error {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPayloadBytes))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable payload"})
		}
		if err := processor.Process(body, logEvent(log)); err != nil {
			switch {
			case errors.Is(err, webhook.ErrVerifyNotImplemented):
				return c.JSON(http.StatusNotImplemented, map[string]string{"error": err.Error()})
			case errors.Is(err, webhook.ErrDecode):
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			default:
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
			}
		}
		return c.NoContent(http.StatusAccepted)
	})

	if err := e.Start(fmt.Sprintf(":%d", cfg.Webhook.Port)); err != nil {
		exitErr(err.Error())
	}
}

func logEvent(log *slog.Logger) webhook.Handler {
	return func(envelope webhook.Envelope) error {
		log.Info("webhook event", "type", envelope.Type, "id", envelope.ID, "attributes", len(envelope.Attributes))
		return nil
	}
}

func exitErr(message string) {
	fmt.Fprintln(os.Stderr, message)
	os.Exit(1)
}
