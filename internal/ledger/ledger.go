package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"go.uber.org/zap"

	"github.com/cheng-chun-yuan/yap2win/internal/models"
)

// Service creates on-chain prize pools for reward events.
type Service interface {
	CreatePool(ctx context.Context, name string, start, end time.Time, amount float64) (models.TxResult, error)
}

const poolABI = `[{"inputs":[{"name":"name","type":"string"},{"name":"startTime","type":"uint256"},{"name":"endTime","type":"uint256"}],"name":"createPool","outputs":[{"name":"","type":"uint256"}],"stateMutability":"payable","type":"function"}]`

const (
	defaultGasLimit = 200000
	requestTimeout  = 30 * time.Second
)

// ROFLClient submits pool creation transactions through the ROFL app daemon,
// which signs them inside the trusted runtime. It speaks HTTP over the
// daemon's unix socket.
type ROFLClient struct {
	httpClient *http.Client
	contract   string
	abi        abi.ABI
	logger     *zap.Logger
}

func NewROFLClient(socketPath, contract string, logger *zap.Logger) (*ROFLClient, error) {
	parsed, err := abi.JSON(strings.NewReader(poolABI))
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	return &ROFLClient{
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
		},
		contract: strings.TrimPrefix(contract, "0x"),
		abi:      parsed,
		logger:   logger,
	}, nil
}

type signSubmitRequest struct {
	Tx      txEnvelope `json:"tx"`
	Encrypt bool       `json:"encrypt"`
}

type txEnvelope struct {
	Kind string `json:"kind"`
	Data txData `json:"data"`
}

type txData struct {
	GasLimit uint64 `json:"gas_limit"`
	To       string `json:"to"`
	Value    string `json:"value"`
	Data     string `json:"data"`
}

type signSubmitResponse struct {
	Hash   string `json:"hash"`
	Status string `json:"status"`
}

func (c *ROFLClient) CreatePool(ctx context.Context, name string, start, end time.Time, amount float64) (models.TxResult, error) {
	calldata, err := c.abi.Pack("createPool", name,
		big.NewInt(start.Unix()), big.NewInt(end.Unix()))
	if err != nil {
		return models.TxResult{}, fmt.Errorf("pack createPool call: %w", err)
	}

	payload := signSubmitRequest{
		Tx: txEnvelope{
			Kind: "eth",
			Data: txData{
				GasLimit: defaultGasLimit,
				To:       c.contract,
				Value:    weiValue(amount).String(),
				Data:     hex.EncodeToString(calldata),
			},
		},
		Encrypt: true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return models.TxResult{}, fmt.Errorf("encode sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"http://localhost/rofl/v1/tx/sign-submit", bytes.NewReader(body))
	if err != nil {
		return models.TxResult{}, fmt.Errorf("build sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.TxResult{}, fmt.Errorf("submit transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.TxResult{}, fmt.Errorf("rofl daemon returned status %d", resp.StatusCode)
	}

	var result signSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.TxResult{}, fmt.Errorf("decode sign response: %w", err)
	}

	c.logger.Info("pool creation transaction submitted",
		zap.String("name", name),
		zap.String("hash", result.Hash))
	return models.TxResult{Success: true, Hash: result.Hash, Status: result.Status}, nil
}

// weiValue converts a ROSE amount to wei.
func weiValue(amount float64) *big.Int {
	wei, _ := new(big.Float).Mul(
		big.NewFloat(amount),
		big.NewFloat(1e18),
	).Int(nil)
	return wei
}

// Disabled is the ledger used when no ROFL daemon is configured.
type Disabled struct{}

func (Disabled) CreatePool(ctx context.Context, name string, start, end time.Time, amount float64) (models.TxResult, error) {
	return models.TxResult{}, fmt.Errorf("on-chain pool creation is not configured")
}
