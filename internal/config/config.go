// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package config loads the sequencer's environment-variable configuration
// (spec §6), grounded on kshinn-umbra-gateway's config.Load: a struct of
// typed fields, getEnv/getEnvInt helpers with defaults, and an optional
// .env file loaded via joho/godotenv for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every recognized option from spec §6's table.
type Config struct {
	APIHost string
	APIPort int

	L1RPCURL  string
	L1ChainID uint64
	L2ChainID uint64

	SequencerPrivateKey string // 32-byte hex, empty when this node does not sign L1 submissions

	BatchSizeLimit  int
	BlockGasLimit   uint64
	BatchIntervalMs int

	MempoolMaxSize int
	MempoolWALPath string

	StateDBPath string

	EmergencyHalt bool

	RateLimitPerSecond int
}

// BatchInterval returns BatchIntervalMs as a time.Duration.
func (c *Config) BatchInterval() time.Duration {
	return time.Duration(c.BatchIntervalMs) * time.Millisecond
}

// Load reads configuration from environment variables, defaulting every
// field per spec §6. A .env file in the working directory is loaded first
// if present (dev convenience; production deployments set real env vars).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIHost:             getEnv("API_HOST", "0.0.0.0"),
		APIPort:             getEnvInt("API_PORT", 6197),
		L1RPCURL:            getEnv("L1_RPC_URL", "http://localhost:8545"),
		L1ChainID:           getEnvUint64("L1_CHAIN_ID", 1),
		L2ChainID:           getEnvUint64("L2_CHAIN_ID", 1337),
		SequencerPrivateKey: getEnv("SEQUENCER_PRIVATE_KEY", ""),
		BatchSizeLimit:      getEnvInt("BATCH_SIZE_LIMIT", 1000),
		BlockGasLimit:       getEnvUint64("BLOCK_GAS_LIMIT", 30_000_000),
		BatchIntervalMs:     getEnvInt("BATCH_INTERVAL_MS", 2000),
		MempoolMaxSize:      getEnvInt("MEMPOOL_MAX_SIZE", 100_000),
		MempoolWALPath:      getEnv("MEMPOOL_WAL_PATH", "./mempool.wal"),
		StateDBPath:         getEnv("STATE_DB_PATH", "./state.db"),
		EmergencyHalt:       getEnvBool("EMERGENCY_HALT", false),
		RateLimitPerSecond:  getEnvInt("RATE_LIMIT_PER_SECOND", 1000),
	}

	if cfg.BatchSizeLimit <= 0 {
		return nil, fmt.Errorf("config: BATCH_SIZE_LIMIT must be positive")
	}
	if cfg.BlockGasLimit == 0 {
		return nil, fmt.Errorf("config: BLOCK_GAS_LIMIT must be positive")
	}
	if cfg.SequencerPrivateKey != "" && len(cfg.SequencerPrivateKey) != 64 {
		return nil, fmt.Errorf("config: SEQUENCER_PRIVATE_KEY must be 32 bytes of hex (64 chars)")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvUint64(key string, fallback uint64) uint64 {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
