package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/krnl-labs/krnl-go/constants"
)

// Config holds the runtime configuration for the delegated-execution core.
// Everything is environment-variable backed; cmd entrypoints load a .env
// file first via godotenv for local development.
type Config struct {
	Stage                   string
	ChainRPCURL             string
	ExecutionNodeURL        string
	DelegateContractAddress common.Address
	ChainID                 *big.Int

	PollInterval      time.Duration
	PollTimeout       time.Duration
	LogLookbackBlocks uint64
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	stage := os.Getenv(constants.EnvStage)
	if stage == "" {
		stage = constants.LocalEnvironment
	}
	if !IsValidStage(stage) {
		return nil, fmt.Errorf("invalid %s %q: must be one of %s, %s, %s",
			constants.EnvStage, stage,
			constants.ProdEnvironment, constants.DevEnvironment, constants.LocalEnvironment)
	}

	rpcURL := os.Getenv(constants.EnvChainRPCURL)
	if rpcURL == "" {
		return nil, fmt.Errorf("%s is required", constants.EnvChainRPCURL)
	}

	nodeURL := os.Getenv(constants.EnvExecutionNodeURL)
	if nodeURL == "" {
		return nil, fmt.Errorf("%s is required", constants.EnvExecutionNodeURL)
	}

	delegateHex := os.Getenv(constants.EnvDelegateContract)
	if !common.IsHexAddress(delegateHex) {
		return nil, fmt.Errorf("%s is missing or not a valid address", constants.EnvDelegateContract)
	}

	chainIDStr := os.Getenv(constants.EnvChainID)
	chainID, ok := new(big.Int).SetString(chainIDStr, 10)
	if !ok || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("%s is missing or not a positive integer", constants.EnvChainID)
	}

	cfg := &Config{
		Stage:                   stage,
		ChainRPCURL:             rpcURL,
		ExecutionNodeURL:        nodeURL,
		DelegateContractAddress: common.HexToAddress(delegateHex),
		ChainID:                 chainID,
		PollInterval:            constants.DefaultPollInterval,
		PollTimeout:             constants.DefaultPollTimeout,
		LogLookbackBlocks:       constants.DefaultLogLookbackBlocks,
	}

	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("POLL_INTERVAL_SECONDS must be a positive integer, got %q", v)
		}
		cfg.PollInterval = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("POLL_TIMEOUT_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("POLL_TIMEOUT_SECONDS must be a positive integer, got %q", v)
		}
		cfg.PollTimeout = time.Duration(secs) * time.Second
	}

	return cfg, nil
}

// IsValidStage reports whether the stage name is one the service recognizes.
func IsValidStage(stage string) bool {
	switch stage {
	case constants.ProdEnvironment, constants.DevEnvironment, constants.LocalEnvironment:
		return true
	}
	return false
}
