package assets

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/cheng-chun-yuan/yap2win/internal/models"
)

// Registry answers NFT holdings questions for wallet addresses.
type Registry interface {
	OwnsAsset(ctx context.Context, address string, kind models.AssetKind) (bool, error)
	Summary(ctx context.Context, address string) (map[models.AssetKind]int, error)
}

const erc721ABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

// Collection is a tracked ERC-721 contract.
type Collection struct {
	Name     string
	Contract common.Address
}

// Collections maps the asset kinds the bot can gate on to their mainnet
// contracts.
var Collections = map[models.AssetKind]Collection{
	models.AssetKindPenguin: {
		Name:     "Pudgy Penguins",
		Contract: common.HexToAddress("0xBd3531dA5CF5857e7CfAA92426877b022e612cf8"),
	},
	models.AssetKindApe: {
		Name:     "Bored Ape Yacht Club",
		Contract: common.HexToAddress("0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D"),
	},
}

// Kinds lists the tracked collections in display order.
var Kinds = []models.AssetKind{models.AssetKindPenguin, models.AssetKindApe}

// CollectionName returns the display name for kind, or the kind itself when
// unknown.
func CollectionName(kind models.AssetKind) string {
	if col, ok := Collections[kind]; ok {
		return col.Name
	}
	return string(kind)
}

// EthRegistry checks holdings with balanceOf calls against an Ethereum RPC
// endpoint.
type EthRegistry struct {
	client *ethclient.Client
	abi    abi.ABI
	logger *zap.Logger
}

func NewEthRegistry(rpcURL string, logger *zap.Logger) (*EthRegistry, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial ethereum rpc: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(erc721ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc721 abi: %w", err)
	}
	return &EthRegistry{client: client, abi: parsed, logger: logger}, nil
}

func (r *EthRegistry) OwnsAsset(ctx context.Context, address string, kind models.AssetKind) (bool, error) {
	balance, err := r.balanceOf(ctx, address, kind)
	if err != nil {
		return false, err
	}
	return balance.Sign() > 0, nil
}

func (r *EthRegistry) Summary(ctx context.Context, address string) (map[models.AssetKind]int, error) {
	summary := make(map[models.AssetKind]int, len(Collections))
	for kind := range Collections {
		balance, err := r.balanceOf(ctx, address, kind)
		if err != nil {
			r.logger.Warn("holdings lookup failed",
				zap.String("kind", string(kind)),
				zap.Error(err))
			continue
		}
		summary[kind] = int(balance.Int64())
	}
	return summary, nil
}

func (r *EthRegistry) balanceOf(ctx context.Context, address string, kind models.AssetKind) (*big.Int, error) {
	col, ok := Collections[kind]
	if !ok {
		return nil, fmt.Errorf("unknown asset kind %q", kind)
	}
	data, err := r.abi.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf call: %w", err)
	}
	out, err := r.client.CallContract(ctx, ethereum.CallMsg{
		To:   &col.Contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s contract: %w", col.Name, err)
	}
	results, err := r.abi.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("decode balanceOf result: %w", err)
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", results[0])
	}
	return balance, nil
}

// Disabled is the registry used when no Ethereum RPC endpoint is configured.
type Disabled struct{}

func (Disabled) OwnsAsset(ctx context.Context, address string, kind models.AssetKind) (bool, error) {
	return false, fmt.Errorf("nft verification is not configured")
}

func (Disabled) Summary(ctx context.Context, address string) (map[models.AssetKind]int, error) {
	return nil, fmt.Errorf("nft verification is not configured")
}
