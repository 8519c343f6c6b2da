// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// CacheConfig provides settings for the cache store. An empty Redis address
// selects the in-memory fallback.
type CacheConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

// SireneConfig provides OAuth2 credentials for the INSEE Sirene API.
type SireneConfig interface {
	GetSireneClientID() string
	GetSireneClientSecret() string
	IsSireneEnabled() bool
}

// BDNBConfig provides the API key for the BDNB building database.
type BDNBConfig interface {
	GetBDNBAPIKey() string
}

// PappersConfig provides settings for the paid contact enrichment source.
type PappersConfig interface {
	GetPappersAPIKey() string
	IsPappersEnabled() bool
}

// ProspectionConfig provides tuning options for the prospection pipeline.
type ProspectionConfig interface {
	GetEnabledSources() map[string]bool
	GetMinScores() map[string]float64
	GetMaxEnrichConcurrency() int
	GetTechnicalFilterPolicy() string
	GetMaxContactEnrichments() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env      string
	HTTPAddr string

	CORSAllowAll bool
	CORSOrigins  []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SireneClientID     string
	SireneClientSecret string
	BDNBAPIKey         string
	PappersAPIKey      string

	EnabledSources        map[string]bool
	MinScores             map[string]float64
	MaxEnrichConcurrency  int
	TechnicalFilterPolicy string
	MaxContactEnrichments int

	SourceTimeout time.Duration
}

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// CacheConfig implementation
func (c *Config) GetRedisAddr() string     { return c.RedisAddr }
func (c *Config) GetRedisPassword() string { return c.RedisPassword }
func (c *Config) GetRedisDB() int          { return c.RedisDB }

// SireneConfig implementation
func (c *Config) GetSireneClientID() string     { return c.SireneClientID }
func (c *Config) GetSireneClientSecret() string { return c.SireneClientSecret }
func (c *Config) IsSireneEnabled() bool {
	return c.SireneClientID != "" && c.SireneClientSecret != ""
}

// BDNBConfig implementation
func (c *Config) GetBDNBAPIKey() string { return c.BDNBAPIKey }

// PappersConfig implementation
func (c *Config) GetPappersAPIKey() string { return c.PappersAPIKey }
func (c *Config) IsPappersEnabled() bool   { return c.PappersAPIKey != "" }

// ProspectionConfig implementation
func (c *Config) GetEnabledSources() map[string]bool  { return c.EnabledSources }
func (c *Config) GetMinScores() map[string]float64    { return c.MinScores }
func (c *Config) GetMaxEnrichConcurrency() int        { return c.MaxEnrichConcurrency }
func (c *Config) GetTechnicalFilterPolicy() string    { return c.TechnicalFilterPolicy }
func (c *Config) GetMaxContactEnrichments() int       { return c.MaxContactEnrichments }
func (c *Config) GetSourceTimeout() time.Duration     { return c.SourceTimeout }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	filterPolicy := strings.ToLower(getEnv("PROSPECTION_FILTER_POLICY", "keep"))
	if filterPolicy != "keep" && filterPolicy != "drop" {
		return nil, fmt.Errorf("PROSPECTION_FILTER_POLICY must be 'keep' or 'drop', got %q", filterPolicy)
	}

	cfg := &Config{
		Env:          getEnv("APP_ENV", "development"),
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		CORSAllowAll: strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200")),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       mustInt(getEnv("REDIS_DB", "0")),

		SireneClientID:     getEnv("SIRENE_CLIENT_ID", ""),
		SireneClientSecret: getEnv("SIRENE_CLIENT_SECRET", ""),
		BDNBAPIKey:         getEnv("BDNB_API_KEY", ""),
		PappersAPIKey:      getEnv("PAPPERS_API_KEY", ""),

		EnabledSources:        parseEnabledSources(getEnv("PROSPECTION_ENABLED_SOURCES", "")),
		MinScores:             parseMinScores(getEnv("PROSPECTION_MIN_SCORES", "")),
		MaxEnrichConcurrency:  mustInt(getEnv("PROSPECTION_MAX_ENRICH_CONCURRENCY", "4")),
		TechnicalFilterPolicy: filterPolicy,
		MaxContactEnrichments: mustInt(getEnv("PROSPECTION_MAX_CONTACT_ENRICHMENTS", "50")),

		SourceTimeout: mustDuration(getEnv("SOURCE_TIMEOUT", "12s")),
	}

	if cfg.MaxEnrichConcurrency < 1 {
		cfg.MaxEnrichConcurrency = 1
	}

	return cfg, nil
}

// parseEnabledSources parses "sirene,ban,dpe" into a set. An empty value means
// every source except the paid ones is enabled; the paid sources additionally
// require their API key.
func parseEnabledSources(value string) map[string]bool {
	set := map[string]bool{}
	for _, name := range splitCSV(value) {
		set[strings.ToLower(name)] = true
	}
	return set
}

// parseMinScores parses "destratification:40,matelas:25" into a per-product map.
// Products absent from the map default to 0 (rank everything, exclude nothing).
func parseMinScores(value string) map[string]float64 {
	scores := map[string]float64{}
	for _, pair := range splitCSV(value) {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			continue
		}
		threshold, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			continue
		}
		scores[strings.ToLower(strings.TrimSpace(parts[0]))] = threshold
	}
	return scores
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
