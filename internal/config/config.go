// Package config loads the recognized DRIFTMAIL_* environment options for
// the CLI tools and the webhook receiver.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/driftmail/driftmail-go/pkg/driftmail"
)

// Config is the full environment surface.
type Config struct {
	Client  driftmail.Options
	Webhook WebhookConfig
}

// WebhookConfig configures the inbound webhook receiver.
type WebhookConfig struct {
	Port             int
	VerifySignatures bool
}

// Load reads configuration from the environment, applying defaults and
// clamping out-of-range values.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("driftmail_api_key", "")
	v.SetDefault("driftmail_base_url", "")
	v.SetDefault("driftmail_debug", false)
	v.SetDefault("driftmail_log_file", "driftmail.log")
	v.SetDefault("driftmail_num_retries", 0)
	v.SetDefault("driftmail_user_agent_suffix", "")
	v.SetDefault("driftmail_cache_enabled", true)
	v.SetDefault("driftmail_cache_dir", "")
	v.SetDefault("driftmail_cache_backend", driftmail.CacheBackendFilesystem)
	v.SetDefault("driftmail_cache_ttl", 300)
	v.SetDefault("driftmail_rate_limit", 3.0)
	v.SetDefault("driftmail_webhook_port", 8080)
	v.SetDefault("driftmail_webhook_verify_signatures", false)

	port := v.GetInt("driftmail_webhook_port")
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid DRIFTMAIL_WEBHOOK_PORT: %d", port)
	}

	retries := v.GetInt("driftmail_num_retries")
	if retries < 0 {
		retries = 0
	}
	if retries > 10 {
		retries = 10
	}

	ttl := v.GetInt("driftmail_cache_ttl")
	if ttl <= 0 {
		ttl = 300
	}

	rate := v.GetFloat64("driftmail_rate_limit")
	if rate <= 0 {
		rate = 3.0
	}

	backend := strings.TrimSpace(strings.ToLower(v.GetString("driftmail_cache_backend")))
	if backend == "" {
		backend = driftmail.CacheBackendFilesystem
	}
	switch backend {
	case driftmail.CacheBackendFilesystem, driftmail.CacheBackendBolt:
	default:
		return Config{}, fmt.Errorf("invalid DRIFTMAIL_CACHE_BACKEND: %q", backend)
	}

	return Config{
		Client: driftmail.Options{
			APIKey:          strings.TrimSpace(v.GetString("driftmail_api_key")),
			BaseURL:         strings.TrimSpace(v.GetString("driftmail_base_url")),
			Debug:           v.GetBool("driftmail_debug"),
			LogFile:         strings.TrimSpace(v.GetString("driftmail_log_file")),
			NumRetries:      retries,
			UserAgentSuffix: strings.TrimSpace(v.GetString("driftmail_user_agent_suffix")),
			CacheEnabled:    v.GetBool("driftmail_cache_enabled"),
			CacheDir:        strings.TrimSpace(v.GetString("driftmail_cache_dir")),
			CacheBackend:    backend,
			CacheTTL:        ttl,
			RateLimit:       rate,
		},
		Webhook: WebhookConfig{
			Port:             port,
			VerifySignatures: v.GetBool("driftmail_webhook_verify_signatures"),
		},
	}, nil
}
