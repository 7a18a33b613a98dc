package model

import (
	"encoding/json"
	"math/big"
)

// Tab はUIのアクティブなタブ
type Tab string

const (
	TabMint  Tab = "mint"
	TabBuy   Tab = "buy"
	TabOwned Tab = "owned"
)

// Valid は既知のタブかどうかを返す
func (t Tab) Valid() bool {
	switch t {
	case TabMint, TabBuy, TabOwned:
		return true
	}
	return false
}

// ===============================================
// スマートコントラクト関連のモデル
// ===============================================

// Property はgetPropertyDetailsが返す物件情報 (コントラクト所有、読み取り専用)
type Property struct {
	ID       uint64
	Title    string
	Location string
	Price    *big.Int // wei
	Owner    string
	ForSale  bool
}

type propertyJSON struct {
	ID       uint64 `json:"id"`
	Title    string `json:"title"`
	Location string `json:"location"`
	PriceWei string `json:"price_wei"`
	PriceETH string `json:"price_eth"`
	Owner    string `json:"owner"`
	ForSale  bool   `json:"for_sale"`
}

func (p Property) MarshalJSON() ([]byte, error) {
	out := propertyJSON{
		ID:       p.ID,
		Title:    p.Title,
		Location: p.Location,
		PriceWei: "0",
		PriceETH: FormatEther(p.Price),
		Owner:    p.Owner,
		ForSale:  p.ForSale,
	}
	if p.Price != nil {
		out.PriceWei = p.Price.String()
	}
	return json.Marshal(out)
}

func (p *Property) UnmarshalJSON(data []byte) error {
	var in propertyJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	price, ok := new(big.Int).SetString(in.PriceWei, 10)
	if !ok {
		return ErrInvalidAmount
	}
	*p = Property{
		ID:       in.ID,
		Title:    in.Title,
		Location: in.Location,
		Price:    price,
		Owner:    in.Owner,
		ForSale:  in.ForSale,
	}
	return nil
}

// ViewState はセッションのビュー状態のスナップショット
type ViewState struct {
	Tab        Tab        `json:"tab"`
	Account    string     `json:"account"`
	Connected  bool       `json:"connected"`
	Properties []Property `json:"properties"`
	Owned      []Property `json:"owned"`
}

// TxResult は確定した状態変更トランザクションの結果
type TxResult struct {
	Action      string `json:"action"`
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
	Status      string `json:"status"` // "success", "failed"
}

// TxVerification はトランザクション検証結果
type TxVerification struct {
	TxHash         string `json:"tx_hash"`
	Status         string `json:"status"` // "pending", "success", "failed"
	BlockNumber    uint64 `json:"block_number,omitempty"`
	GasUsed        uint64 `json:"gas_used,omitempty"`
	Success        bool   `json:"success"`
	IsContractCall bool   `json:"is_contract_call"`
}

// ContractInfo はコントラクト接続情報
type ContractInfo struct {
	Address   string `json:"address"`
	Account   string `json:"account,omitempty"`
	Connected bool   `json:"connected"`
	ChainID   string `json:"chain_id,omitempty"`
}
