package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/driftmail/driftmail-go/internal/config"
	"github.com/driftmail/driftmail-go/pkg/driftmail"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file loaded:", err)
	}
	cfg, err := config.Load()
	if err != nil {
		exitErr(err.Error())
	}

	apiKey := flag.String("api-key", cfg.Client.APIKey, "Driftmail API key (or DRIFTMAIL_API_KEY)")
	metric := flag.String("metric", "", "Metric name")
	email := flag.String("email", "", "Profile email")
	value := flag.Float64("value", 0, "Event value (optional)")
	uniqueID := flag.String("unique-id", "", "Deduplication id (optional)")
	timestamp := flag.String("time", "", "Event time, RFC 3339 (optional)")
	var properties propertyFlags
	flag.Var(&properties, "prop", "Event property as key=value (repeatable)")
	flag.Parse()

	if strings.TrimSpace(*apiKey) == "" {
		exitErr("api key is required (or set DRIFTMAIL_API_KEY)")
	}
	if strings.TrimSpace(*metric) == "" || strings.TrimSpace(*email) == "" {
		exitErr("metric and email are required")
	}

	event := driftmail.Event{
		Metric:     strings.TrimSpace(*metric),
		Email:      strings.TrimSpace(*email),
		Value:      *value,
		UniqueID:   strings.TrimSpace(*uniqueID),
		Properties: properties.values,
	}
	if ts := strings.TrimSpace(*timestamp); ts != "" {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			exitErr("invalid -time: " + err.Error())
		}
		event.Time = parsed
	}

	cfg.Client.APIKey = strings.TrimSpace(*apiKey)
	client, err := driftmail.New(cfg.Client)
	if err != nil {
		exitErr(err.Error())
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.TrackEvent(context.Background(), event); err != nil {
		exitErr(err.Error())
	}
	fmt.Printf("Tracked %s for %s\n", event.Metric, event.Email)
}

// propertyFlags collects repeated key=value pairs.
type propertyFlags struct {
	values map[string]any
}

func (p *propertyFlags) String() string {
	return fmt.Sprintf("%v", p.values)
}

func (p *propertyFlags) Set(raw string) error {
	pair := strings.SplitN(raw, "=", 2)
	if len(pair) != 2 || strings.TrimSpace(pair[0]) == "" {
		return fmt.Errorf("expected key=value, got %q", raw)
	}
	if p.values == nil {
		p.values = map[string]any{}
	}
	p.values[strings.TrimSpace(pair[0])] = strings.TrimSpace(pair[1])
	return nil
}

func exitErr(message string) {
	fmt.Fprintln(os.Stderr, message)
	os.Exit(1)
}
