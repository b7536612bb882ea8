package config_test

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/krnl-labs/krnl-go/config"
	"github.com/krnl-labs/krnl-go/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(constants.EnvStage, "dev")
	t.Setenv(constants.EnvChainRPCURL, "https://rpc.example.test")
	t.Setenv(constants.EnvExecutionNodeURL, "https://node.example.test")
	t.Setenv(constants.EnvDelegateContract, "0xDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDD")
	t.Setenv(constants.EnvChainID, "11155111")
	t.Setenv("POLL_INTERVAL_SECONDS", "")
	t.Setenv("POLL_TIMEOUT_SECONDS", "")
}

func TestLoad(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Stage)
	assert.Equal(t, "https://rpc.example.test", cfg.ChainRPCURL)
	assert.Equal(t, "https://node.example.test", cfg.ExecutionNodeURL)
	assert.Equal(t, common.HexToAddress("0xDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDDD"), cfg.DelegateContractAddress)
	assert.Equal(t, "11155111", cfg.ChainID.String())
	assert.Equal(t, constants.DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, constants.DefaultPollTimeout, cfg.PollTimeout)
	assert.Equal(t, uint64(constants.DefaultLogLookbackBlocks), cfg.LogLookbackBlocks)
}

func TestLoad_DefaultsStageToLocal(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(constants.EnvStage, "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, constants.LocalEnvironment, cfg.Stage)
}

func TestLoad_PollOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POLL_INTERVAL_SECONDS", "2")
	t.Setenv("POLL_TIMEOUT_SECONDS", "30")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.PollTimeout)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T)
	}{
		{
			name:   "invalid stage",
			mutate: func(t *testing.T) { t.Setenv(constants.EnvStage, "staging") },
		},
		{
			name:   "missing rpc url",
			mutate: func(t *testing.T) { t.Setenv(constants.EnvChainRPCURL, "") },
		},
		{
			name:   "missing execution node url",
			mutate: func(t *testing.T) { t.Setenv(constants.EnvExecutionNodeURL, "") },
		},
		{
			name:   "invalid delegate address",
			mutate: func(t *testing.T) { t.Setenv(constants.EnvDelegateContract, "0x123") },
		},
		{
			name:   "missing chain id",
			mutate: func(t *testing.T) { t.Setenv(constants.EnvChainID, "") },
		},
		{
			name:   "non-positive chain id",
			mutate: func(t *testing.T) { t.Setenv(constants.EnvChainID, "0") },
		},
		{
			name:   "bad poll interval",
			mutate: func(t *testing.T) { t.Setenv("POLL_INTERVAL_SECONDS", "soon") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			tt.mutate(t)

			cfg, err := config.Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestIsValidStage(t *testing.T) {
	assert.True(t, config.IsValidStage(constants.ProdEnvironment))
	assert.True(t, config.IsValidStage(constants.DevEnvironment))
	assert.True(t, config.IsValidStage(constants.LocalEnvironment))
	assert.False(t, config.IsValidStage("staging"))
	assert.False(t, config.IsValidStage(""))
}
