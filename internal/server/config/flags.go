package config

import (
	"flag"
	"os"
	"time"

	"github.com/bloxpvp/robloxlink/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":6565")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      session token validity, hours
//	-r int      token renewal threshold, hours
//	-l int      challenge TTL, minutes
//	-q string   Redis address for the challenge registry (optional)
//	-u string   Roblox users API base URL
//	-m string   Roblox thumbnails API base URL
//	-x float    XP level-curve constant
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers and converted to time.Duration values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-r", "-l", "-q", "-u", "-m", "-x"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Hours()), "token_validity_duration (in hours)")
	renewalThreshold := fs.Int("r", int(config.TokenRenewalThreshold.Hours()), "token_renewal_threshold (in hours)")
	challengeTTL := fs.Int("l", int(config.ChallengeTTL.Minutes()), "challenge_ttl (in minutes)")

	fs.StringVar(&config.RedisAddr, "q", config.RedisAddr, "redis address for challenge registry")
	fs.StringVar(&config.RobloxUsersEndpoint, "u", config.RobloxUsersEndpoint, "roblox users API base URL")
	fs.StringVar(&config.RobloxThumbnailsEndpoint, "m", config.RobloxThumbnailsEndpoint, "roblox thumbnails API base URL")
	fs.Float64Var(&config.XPConstant, "x", config.XPConstant, "xp level-curve constant")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Hour
	config.TokenRenewalThreshold = time.Duration(*renewalThreshold) * time.Hour
	config.ChallengeTTL = time.Duration(*challengeTTL) * time.Minute
}
