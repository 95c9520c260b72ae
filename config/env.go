package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}

func durationMsFromEnv(key string, def time.Duration) time.Duration {
	ms := intFromEnv(key, -1)
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

// AllowApproverQuery lets `?approver=true` request reviewer scope on the DSCR status route.
//
// Set via env:
// - ALLOW_APPROVER_QUERY=false to require an approver/admin role claim instead.
func AllowApproverQuery() bool {
	return envBoolDefault("ALLOW_APPROVER_QUERY", true)
}
