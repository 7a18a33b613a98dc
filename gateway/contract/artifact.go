package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// Artifact はHardhatのコンパイル成果物 (artifacts/.../RealEstateMarketplace.json)
type Artifact struct {
	ContractName string
	ABI          abi.ABI
	Bytecode     []byte
}

type artifactJSON struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// LoadArtifact はアーティファクトファイルを読み込む
func LoadArtifact(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return ParseArtifact(raw)
}

// ParseArtifact はアーティファクトJSONをデコードする
func ParseArtifact(raw []byte) (*Artifact, error) {
	var in artifactJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	if len(in.ABI) == 0 {
		return nil, errors.New("artifact has no abi")
	}

	parsedABI, err := abi.JSON(bytes.NewReader(in.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse artifact abi: %w", err)
	}

	artifact := &Artifact{
		ContractName: in.ContractName,
		ABI:          parsedABI,
	}
	if in.Bytecode != "" && in.Bytecode != "0x" {
		code, err := hexutil.Decode(in.Bytecode)
		if err != nil {
			return nil, fmt.Errorf("failed to decode artifact bytecode: %w", err)
		}
		artifact.Bytecode = code
	}
	return artifact, nil
}

// Deploy はアーティファクトのバイトコードをデプロイし、取り込まれるまで待つ
func Deploy(ctx context.Context, backend Backend, opts *bind.TransactOpts, artifact *Artifact) (common.Address, *types.Transaction, error) {
	if len(artifact.Bytecode) == 0 {
		return common.Address{}, nil, errors.New("artifact has no bytecode")
	}
	if err := verifyMethods(artifact.ABI); err != nil {
		return common.Address{}, nil, err
	}

	_, tx, _, err := bind.DeployContract(opts, artifact.ABI, artifact.Bytecode, backend)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to submit deployment: %w", err)
	}

	address, err := bind.WaitDeployed(ctx, backend, tx)
	if err != nil {
		return common.Address{}, tx, fmt.Errorf("deployment not confirmed: %w", err)
	}
	return address, tx, nil
}
