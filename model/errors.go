package model

import "errors"

// ウォレット接続エラー
var (
	ErrNoProvider            = errors.New("wallet provider not detected")
	ErrAuthorizationRejected = errors.New("account authorization rejected")
	ErrNotConnected          = errors.New("wallet not connected")
)

// アクション (mint / list / buy) のエラー
var (
	ErrActionInFlight      = errors.New("action already in progress")
	ErrInvalidAmount       = errors.New("invalid ether amount")
	ErrPropertyNotFetched  = errors.New("property not in fetched list")
	ErrNotForSale          = errors.New("property is not for sale")
	ErrTransactionFailed   = errors.New("transaction failed")
	ErrTransactionReverted = errors.New("transaction reverted")
)

var (
	ErrInvalidTab  = errors.New("invalid tab")
	ErrReadFailed  = errors.New("failed to read contract state")
	ErrInvalidHash = errors.New("invalid transaction hash format")
)
