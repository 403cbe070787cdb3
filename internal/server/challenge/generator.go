// Package challenge implements the verification handshake memory: a
// generator for human-readable challenge strings and a registry of
// outstanding challenges keyed by Roblox user id.
package challenge

import (
	"fmt"
	"math/rand/v2"

	"github.com/bloxpvp/robloxlink/internal/shared"
)

// Prefix is the fixed literal every challenge starts with. It keeps issued
// challenges recognizable in profiles and logs.
const Prefix = "bloxpvp"

var (
	adjectives = []string{"cool", "awesome", "amazing", "epic", "fantastic", "incredible", "super", "great", "brilliant", "wonderful"}
	nouns      = []string{"player", "gamer", "champion", "winner", "master", "pro", "expert", "legend", "star", "hero"}
	verbs      = []string{"playing", "gaming", "winning", "crushing", "dominating", "leading", "achieving", "succeeding", "excelling", "ruling"}
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate produces a challenge safe to display as public profile text.
// The dictionary words are decoration; unguessability comes from the
// trailing 8 random bytes (64 bits) in hex.
func (g *Generator) Generate() (string, error) {
	suffix, err := shared.MakeRandHexString(8)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s %s %s %s %s",
		Prefix,
		adjectives[rand.IntN(len(adjectives))],
		nouns[rand.IntN(len(nouns))],
		verbs[rand.IntN(len(verbs))],
		suffix,
	), nil
}
