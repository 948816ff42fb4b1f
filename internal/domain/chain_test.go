package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress(" 0xAbCdEf0000000000000000000000000000000001 ")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0000000000000000000000000000000001", got)

	for _, bad := range []string{
		"",
		"0x",
		"abcdef0000000000000000000000000000000001",
		"0xabcdef000000000000000000000000000000001",   // 39 digits
		"0xabcdef00000000000000000000000000000000011", // 41 digits
		"0xg000000000000000000000000000000000000001",
	} {
		_, err := NormalizeAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, bad)
	}
}

func TestChainID_String(t *testing.T) {
	assert.Equal(t, "ethereum", ChainEthereum.String())
	assert.Equal(t, "zksync", ChainZkSync.String())
	assert.Equal(t, "999", ChainID(999).String())
}
