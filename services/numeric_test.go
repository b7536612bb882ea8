package services_test

import (
	"math/big"
	"testing"

	"github.com/krnl-labs/krnl-go/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNumeric(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    string
		wantErr bool
	}{
		{name: "big.Int passes through", input: big.NewInt(42), want: "42"},
		{name: "int", input: 42, want: "42"},
		{name: "int64", input: int64(42), want: "42"},
		{name: "uint64", input: uint64(42), want: "42"},
		{name: "whole float64", input: float64(42), want: "42"},
		{name: "decimal string", input: "1000", want: "1000"},
		{name: "hex string", input: "0x3e8", want: "1000"},
		{name: "uppercase hex prefix", input: "0X3E8", want: "1000"},
		{name: "large hex quantity", input: "0xde0b6b3a7640000", want: "1000000000000000000"},
		{name: "zero", input: big.NewInt(0), want: "0"},
		{name: "nil is rejected", input: nil, wantErr: true},
		{name: "nil big.Int is rejected", input: (*big.Int)(nil), wantErr: true},
		{name: "negative int is rejected", input: -1, wantErr: true},
		{name: "negative big.Int is rejected", input: big.NewInt(-1), wantErr: true},
		{name: "fractional float is rejected", input: float64(1.5), wantErr: true},
		{name: "oversized float is rejected", input: float64(1 << 54), wantErr: true},
		{name: "empty string is rejected", input: "", wantErr: true},
		{name: "bare 0x is rejected", input: "0x", wantErr: true},
		{name: "garbage string is rejected", input: "not-a-number", wantErr: true},
		{name: "negative string is rejected", input: "-5", wantErr: true},
		{name: "unsupported type is rejected", input: []byte{1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := services.NormalizeNumeric("field", tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestNormalizeUint64(t *testing.T) {
	got, err := services.NormalizeUint64("nonce", "0xff")
	require.NoError(t, err)
	assert.Equal(t, uint64(255), got)

	// Values past 64 bits are representable as big.Int but not as uint64.
	tooWide := new(big.Int).Lsh(big.NewInt(1), 64)
	_, err = services.NormalizeUint64("nonce", tooWide)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "64-bit")
}

func TestNormalizeParity(t *testing.T) {
	tests := []struct {
		name    string
		v       uint8
		want    uint8
		wantErr bool
	}{
		{name: "parity zero passes through", v: 0, want: 0},
		{name: "parity one passes through", v: 1, want: 1},
		{name: "legacy 27 collapses to 0", v: 27, want: 0},
		{name: "legacy 28 collapses to 1", v: 28, want: 1},
		{name: "2 is rejected", v: 2, wantErr: true},
		{name: "26 is rejected", v: 26, wantErr: true},
		{name: "29 is rejected", v: 29, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := services.NormalizeParity(tt.v)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeSignature(t *testing.T) {
	sig := make([]byte, 65)
	sig[0] = 0x11
	sig[64] = 27

	got, err := services.NormalizeSignature(sig)
	require.NoError(t, err)
	assert.Len(t, got, 65)
	assert.Equal(t, uint8(0), got[64], "legacy v must be collapsed to parity")
	assert.Equal(t, byte(0x11), got[0])
	assert.Equal(t, uint8(27), sig[64], "input must not be mutated")

	_, err = services.NormalizeSignature(make([]byte, 64))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "65 bytes")

	_, err = services.NormalizeSignature(make([]byte, 66))
	require.Error(t, err)

	bad := make([]byte, 65)
	bad[64] = 5
	_, err = services.NormalizeSignature(bad)
	require.Error(t, err)
}
