package model

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEther(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1", "1000000000000000000"},
		{"1.5", "1500000000000000000"},
		{" 0.001 ", "1000000000000000"},
		{"0", "0"},
		{"0.000000000000000001", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			wei, err := ParseEther(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, wei.String())
		})
	}
}

func TestParseEther_Invalid(t *testing.T) {
	tooLarge := "1" + strings.Repeat("0", 60) // 10^78 wei > 2^256
	for _, in := range []string{"", "abc", "-1", "0.0000000000000000001", "1e3", "2E18", "1e200000", tooLarge} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseEther(in)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}

func TestParseEther_Uint256Boundary(t *testing.T) {
	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	wei, err := ParseEther(FormatEther(maxUint256))
	require.NoError(t, err)
	assert.Equal(t, 0, maxUint256.Cmp(wei))

	over := new(big.Int).Add(maxUint256, big.NewInt(1))
	_, err = ParseEther(FormatEther(over))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFormatEther(t *testing.T) {
	assert.Equal(t, "0", FormatEther(nil))
	assert.Equal(t, "1", FormatEther(big.NewInt(1e18)))
	assert.Equal(t, "0.25", FormatEther(big.NewInt(25e16)))
	assert.Equal(t, "0.000000000000000001", FormatEther(big.NewInt(1)))
}

func TestProperty_JSON(t *testing.T) {
	p := Property{
		ID:       7,
		Title:    "Lake House",
		Location: "Austin",
		Price:    big.NewInt(15e17),
		Owner:    "0x00000000000000000000000000000000000000aA",
		ForSale:  true,
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 7,
		"title": "Lake House",
		"location": "Austin",
		"price_wei": "1500000000000000000",
		"price_eth": "1.5",
		"owner": "0x00000000000000000000000000000000000000aA",
		"for_sale": true
	}`, string(data))

	var decoded Property
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, p.ID, decoded.ID)
	assert.Equal(t, 0, p.Price.Cmp(decoded.Price))
	assert.True(t, decoded.ForSale)
}

func TestTab_Valid(t *testing.T) {
	assert.True(t, TabMint.Valid())
	assert.True(t, TabBuy.Valid())
	assert.True(t, TabOwned.Valid())
	assert.False(t, Tab("settings").Valid())
}
