package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/bloxpvp/robloxlink/internal/flagx"
	"github.com/bloxpvp/robloxlink/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "168h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP         string         `json:"endpoint_addr_http"`
	DatabaseDSN              string         `json:"database_dsn"`
	SecretKey                string         `json:"secret_key"`
	TokenValidityDuration    timex.Duration `json:"token_validity_duration"`
	TokenRenewalThreshold    timex.Duration `json:"token_renewal_threshold"`
	ChallengeTTL             timex.Duration `json:"challenge_ttl"`
	RedisAddr                string         `json:"redis_addr"`
	RobloxUsersEndpoint      string         `json:"roblox_users_endpoint"`
	RobloxThumbnailsEndpoint string         `json:"roblox_thumbnails_endpoint"`
	XPConstant               float64        `json:"xp_constant"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path is taken from the -c or -config command-line flags;
// when neither is set, no JSON file is loaded. If the file cannot be read
// or contains invalid JSON, the function panics. The caller is expected to
// merge these values with defaults and command-line flags as part of the
// full configuration process.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.TokenValidityDuration = time.Duration(c.TokenValidityDuration.Duration)
	config.TokenRenewalThreshold = time.Duration(c.TokenRenewalThreshold.Duration)
	config.ChallengeTTL = time.Duration(c.ChallengeTTL.Duration)
	config.RedisAddr = c.RedisAddr
	config.RobloxUsersEndpoint = c.RobloxUsersEndpoint
	config.RobloxThumbnailsEndpoint = c.RobloxThumbnailsEndpoint
	config.XPConstant = c.XPConstant
}
