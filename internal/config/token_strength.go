package config

import zxcvbn "github.com/ccojocar/zxcvbn-go"

const weakTokenScoreThreshold = 3

// TokenWarning evaluates the configured API token and returns the startup
// warning it deserves, if any. An empty token turns authentication off
// entirely; a guessable one leaves it on but easy to brute-force.
func TokenWarning(token string) (string, bool) {
	if token == "" {
		return "UPSRS_API_TOKEN is empty; API authentication is disabled", true
	}
	if zxcvbn.PasswordStrength(token, nil).Score < weakTokenScoreThreshold {
		return "UPSRS_API_TOKEN is weak; use a longer random token", true
	}
	return "", false
}
