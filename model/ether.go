package model

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// EtherDecimals は1 ETHあたりのWeiの桁数
const EtherDecimals = 18

// maxWeiBits はuint256に収まる最大ビット数
const maxWeiBits = 256

var weiPerEther = decimal.New(1, EtherDecimals)

// ParseEther は "1.5" のようなETH表記をWeiに変換する
func ParseEther(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	// 指数表記は受け付けない (巨大な値の展開を防ぐ)
	if strings.ContainsAny(amount, "eE") {
		return nil, fmt.Errorf("%w: exponent notation %q", ErrInvalidAmount, amount)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount %q", ErrInvalidAmount, amount)
	}

	wei := d.Mul(weiPerEther)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("%w: more than %d decimals in %q", ErrInvalidAmount, EtherDecimals, amount)
	}
	out := wei.BigInt()
	if out.BitLen() > maxWeiBits {
		return nil, fmt.Errorf("%w: %q exceeds uint256", ErrInvalidAmount, amount)
	}
	return out, nil
}

// FormatEther はWeiをETH表記の文字列に変換する (nilは "0")
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals).String()
}
