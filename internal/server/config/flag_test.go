package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	os.Args = []string{"app", "-a", ":9999", "-s", "topsecret", "-t", "24", "-r", "12", "-l", "15", "-q", "redis:6379"}

	c := &Config{}
	c.LoadDefaults()
	parseFlags(c)

	assert.Equal(t, ":9999", c.EndpointAddrHTTP)
	assert.Equal(t, "topsecret", c.SecretKey)
	assert.Equal(t, 24*time.Hour, c.TokenValidityDuration)
	assert.Equal(t, 12*time.Hour, c.TokenRenewalThreshold)
	assert.Equal(t, 15*time.Minute, c.ChallengeTTL)
	assert.Equal(t, "redis:6379", c.RedisAddr)
}

func TestParseFlags_KeepsDefaultsWhenAbsent(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	os.Args = []string{"app"}

	c := &Config{}
	c.LoadDefaults()
	parseFlags(c)

	assert.Equal(t, ":6565", c.EndpointAddrHTTP)
	assert.Equal(t, 7*24*time.Hour, c.TokenValidityDuration)
}
