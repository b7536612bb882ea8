package services_test

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/krnl-labs/krnl-go/logger"
	"github.com/krnl-labs/krnl-go/services"
	"github.com/krnl-labs/krnl-go/types/business"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.InitLogger("test")
}

func TestIntentService_CreateIntent(t *testing.T) {
	sender := common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	target := common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
	node := common.HexToAddress("0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC")

	tests := []struct {
		name        string
		params      services.CreateIntentParams
		wantErr     error
		wantValErr  bool
		checkIntent func(t *testing.T, intent *business.TransactionIntent)
	}{
		{
			name: "successfully creates intent with matching nonce",
			params: services.CreateIntentParams{
				Sender:      sender,
				Target:      target,
				Value:       big.NewInt(1000),
				Nonce:       big.NewInt(5),
				ChainNonce:  big.NewInt(5),
				NodeAddress: node,
			},
			checkIntent: func(t *testing.T, intent *business.TransactionIntent) {
				assert.Equal(t, sender, intent.Sender)
				assert.Equal(t, target, intent.Target)
				assert.Equal(t, int64(1000), intent.Value.Int64())
				assert.Equal(t, int64(5), intent.Nonce.Int64())
				assert.Equal(t, node, intent.NodeAddress)

				// The id must be re-derivable from the persisted fields.
				assert.Equal(t,
					services.ComputeIntentID(intent.Sender, intent.Nonce, intent.Deadline),
					intent.ID,
				)

				// Deadline is one hour out, in unix seconds.
				wantDeadline := time.Now().Add(time.Hour).Unix()
				assert.InDelta(t, wantDeadline, intent.Deadline.Int64(), 5)
			},
		},
		{
			name: "accepts hex string value and nonce",
			params: services.CreateIntentParams{
				Sender:      sender,
				Target:      target,
				Value:       "0x3e8",
				Nonce:       "0x5",
				ChainNonce:  big.NewInt(5),
				NodeAddress: node,
			},
			checkIntent: func(t *testing.T, intent *business.TransactionIntent) {
				assert.Equal(t, int64(1000), intent.Value.Int64())
				assert.Equal(t, int64(5), intent.Nonce.Int64())
			},
		},
		{
			name: "rejects zero sender address",
			params: services.CreateIntentParams{
				Target:     target,
				Value:      big.NewInt(0),
				Nonce:      big.NewInt(0),
				ChainNonce: big.NewInt(0),
			},
			wantErr: business.ErrMissingAddress,
		},
		{
			name: "rejects zero target address",
			params: services.CreateIntentParams{
				Sender:     sender,
				Value:      big.NewInt(0),
				Nonce:      big.NewInt(0),
				ChainNonce: big.NewInt(0),
			},
			wantErr: business.ErrMissingAddress,
		},
		{
			name: "rejects stale nonce",
			params: services.CreateIntentParams{
				Sender:      sender,
				Target:      target,
				Value:       big.NewInt(0),
				Nonce:       big.NewInt(4),
				ChainNonce:  big.NewInt(5),
				NodeAddress: node,
			},
			wantErr: business.ErrInvalidNonce,
		},
		{
			name: "rejects fractional value",
			params: services.CreateIntentParams{
				Sender:      sender,
				Target:      target,
				Value:       float64(1.5),
				Nonce:       big.NewInt(5),
				ChainNonce:  big.NewInt(5),
				NodeAddress: node,
			},
			wantValErr: true,
		},
		{
			name: "rejects missing chain nonce",
			params: services.CreateIntentParams{
				Sender:      sender,
				Target:      target,
				Value:       big.NewInt(0),
				Nonce:       big.NewInt(5),
				NodeAddress: node,
			},
			wantValErr: true,
		},
	}

	service := services.NewIntentService()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, err := service.CreateIntent(tt.params)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, intent)
				return
			}
			if tt.wantValErr {
				require.Error(t, err)
				var valErr *business.ValidationError
				assert.True(t, errors.As(err, &valErr), "got %v", err)
				assert.Nil(t, intent)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, intent)
			if tt.checkIntent != nil {
				tt.checkIntent(t, intent)
			}
		})
	}
}

func TestComputeIntentID_Deterministic(t *testing.T) {
	sender := common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	nonce := big.NewInt(5)
	deadline := big.NewInt(1_755_000_000)

	first := services.ComputeIntentID(sender, nonce, deadline)
	second := services.ComputeIntentID(sender, nonce, deadline)
	assert.Equal(t, first, second, "same inputs must always hash to the same id")
	assert.NotEqual(t, common.Hash{}, first)

	// Any changed input changes the id.
	assert.NotEqual(t, first, services.ComputeIntentID(sender, big.NewInt(6), deadline))
	assert.NotEqual(t, first, services.ComputeIntentID(sender, nonce, big.NewInt(1_755_000_001)))
	other := common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
	assert.NotEqual(t, first, services.ComputeIntentID(other, nonce, deadline))
}

func TestComputeIntentID_StableAcrossSigning(t *testing.T) {
	service := services.NewIntentService()

	intent, err := service.CreateIntent(services.CreateIntentParams{
		Sender:      common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"),
		Target:      common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"),
		Value:       big.NewInt(1),
		Nonce:       big.NewInt(5),
		ChainNonce:  big.NewInt(5),
		NodeAddress: common.HexToAddress("0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"),
	})
	require.NoError(t, err)

	// The id is a function of (sender, nonce, deadline) only; attaching a
	// signature later must not change what the id re-derives to.
	before := intent.ID
	assert.Equal(t, before, services.ComputeIntentID(intent.Sender, intent.Nonce, intent.Deadline))
}
