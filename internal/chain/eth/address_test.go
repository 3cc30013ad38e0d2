package eth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polar0/roi-tracker/internal/chain/eth"
	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// EIP-55 reference vectors.
//
//nolint:gochecknoglobals // Test data
var checksumVectors = []string{
	"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
	"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
	"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	eth.WETHMainnet,
}

func TestToChecksumAddress(t *testing.T) {
	t.Parallel()

	for _, want := range checksumVectors {
		t.Run(want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, want, eth.ToChecksumAddress(strings.ToLower(want)))
			assert.Equal(t, want, eth.ToChecksumAddress("0x"+strings.ToUpper(want[2:])))
		})
	}

	assert.Equal(t, "not-an-address", eth.ToChecksumAddress("not-an-address"))
}

func TestIsValidAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"checksummed", eth.WETHMainnet, true},
		{"lowercase", strings.ToLower(eth.WETHMainnet), true},
		{"missing prefix", eth.WETHMainnet[2:], false},
		{"too short", "0x1234", false},
		{"too long", eth.WETHMainnet + "00", false},
		{"non hex", "0xZ02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.valid, eth.IsValidAddress(tt.input))
		})
	}
}

func TestValidateChecksumAddress(t *testing.T) {
	t.Parallel()

	require.NoError(t, eth.ValidateChecksumAddress(eth.WETHMainnet))
	require.NoError(t, eth.ValidateChecksumAddress(strings.ToLower(eth.WETHMainnet)))

	// Flip the case of one letter to break the checksum
	broken := "0xc02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	err := eth.ValidateChecksumAddress(broken)
	require.ErrorIs(t, err, roierr.ErrInvalidChecksum)

	err = eth.ValidateChecksumAddress("0x123")
	require.ErrorIs(t, err, roierr.ErrInvalidAddress)
}

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	got, err := eth.NormalizeAddress("  " + strings.ToLower(eth.WETHMainnet) + " ")
	require.NoError(t, err)
	assert.Equal(t, eth.WETHMainnet, got)

	_, err = eth.NormalizeAddress("0xnope")
	require.ErrorIs(t, err, roierr.ErrInvalidAddress)
}

func TestSameAddress(t *testing.T) {
	t.Parallel()

	assert.True(t, eth.SameAddress(eth.WETHMainnet, strings.ToLower(eth.WETHMainnet)))
	assert.False(t, eth.SameAddress(eth.WETHMainnet, checksumVectors[0]))
}
