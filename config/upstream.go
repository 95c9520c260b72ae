package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultUpstreamTimeout = 5 * time.Second

// ChainConfig describes the contract holding settled DSCR verifications.
type ChainConfig struct {
	RPCURL          string
	ChainID         int64
	ContractAddress string
	Timeout         time.Duration
}

// NoticeFeedConfig describes the off-chain compute notice feed.
type NoticeFeedConfig struct {
	BaseURL    string
	APIKey     string
	RatePerSec float64
	Timeout    time.Duration
}

// LendScoreConfig describes the supplemental creditworthiness score provider.
type LendScoreConfig struct {
	BaseURL    string
	APIKey     string
	RatePerSec float64
	Timeout    time.Duration
}

func ChainSettings() ChainConfig {
	chainID, err := strconv.ParseInt(strings.TrimSpace(os.Getenv("CHAIN_ID")), 10, 64)
	if err != nil {
		chainID = 0
	}
	return ChainConfig{
		RPCURL:          strings.TrimSpace(os.Getenv("CHAIN_RPC_URL")),
		ChainID:         chainID,
		ContractAddress: strings.TrimSpace(os.Getenv("DSCR_CONTRACT_ADDRESS")),
		Timeout:         durationMsFromEnv("ONCHAIN_TIMEOUT_MS", defaultUpstreamTimeout),
	}
}

func ratePerSecFromEnv(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func NoticeFeedSettings() NoticeFeedConfig {
	return NoticeFeedConfig{
		BaseURL:    strings.TrimRight(strings.TrimSpace(os.Getenv("NOTICE_FEED_URL")), "/"),
		APIKey:     strings.TrimSpace(os.Getenv("NOTICE_FEED_API_KEY")),
		RatePerSec: ratePerSecFromEnv("NOTICE_FEED_RATE_PER_SEC", 20),
		Timeout:    durationMsFromEnv("NOTICE_FEED_TIMEOUT_MS", defaultUpstreamTimeout),
	}
}

func LendScoreSettings() LendScoreConfig {
	return LendScoreConfig{
		BaseURL:    strings.TrimRight(strings.TrimSpace(os.Getenv("LENDSCORE_URL")), "/"),
		APIKey:     strings.TrimSpace(os.Getenv("LENDSCORE_API_KEY")),
		RatePerSec: ratePerSecFromEnv("LENDSCORE_RATE_PER_SEC", 20),
		Timeout:    durationMsFromEnv("LENDSCORE_TIMEOUT_MS", defaultUpstreamTimeout),
	}
}
