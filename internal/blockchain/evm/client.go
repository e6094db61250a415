// internal/blockchain/evm/client.go
package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/monad-bot/internal/types"
)

// ErrReverted is returned when a mined transaction has a failed status.
var ErrReverted = errors.New("transaction reverted")

// Config holds the client settings.
type Config struct {
	RPCURL     string
	ChainID    int64
	PrivateKey string
	// CurveLens quotes bonding-curve trades and picks the router.
	CurveLens common.Address
	// GasLimit of 0 lets the node estimate.
	GasLimit       uint64
	GasStrategy    types.GasStrategy
	ReceiptTimeout time.Duration
}

// Client – тонкий адаптер над go-ethereum: чтение контрактов, подпись и отправка
// транзакций с EIP-1559 комиссиями, ожидание квитанций.
type Client struct {
	eth      *ethclient.Client
	auth     *bind.TransactOpts
	wallet   common.Address
	chainID  *big.Int
	lens     common.Address
	gasLimit uint64
	strategy types.GasStrategy
	timeout  time.Duration

	nonceMu sync.Mutex
	nonce   *uint64

	logger *zap.Logger
}

// Dial connects to cfg.RPCURL and prepares the signer.
func Dial(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	key, err := parseKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		if chainID, err = eth.ChainID(ctx); err != nil {
			eth.Close()
			return nil, fmt.Errorf("fetch chain id: %w", err)
		}
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("create transactor: %w", err)
	}

	timeout := cfg.ReceiptTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	c := &Client{
		eth:      eth,
		auth:     auth,
		wallet:   auth.From,
		chainID:  chainID,
		lens:     cfg.CurveLens,
		gasLimit: cfg.GasLimit,
		strategy: cfg.GasStrategy,
		timeout:  timeout,
		logger:   logger.Named("evm"),
	}
	c.logger.Info("EVM client ready",
		zap.String("wallet", c.wallet.Hex()),
		zap.String("chain_id", chainID.String()),
		zap.String("gas_strategy", string(cfg.GasStrategy)))
	return c, nil
}

func parseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, fmt.Errorf("private key is empty")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// Wallet returns the signer address.
func (c *Client) Wallet() common.Address { return c.wallet }

// Eth exposes the underlying client.
func (c *Client) Eth() *ethclient.Client { return c.eth }

// Close closes the RPC connection.
func (c *Client) Close() error {
	c.eth.Close()
	return nil
}

// NativeBalance returns the wallet's native balance in wei.
func (c *Client) NativeBalance(ctx context.Context) (*big.Int, error) {
	return c.eth.BalanceAt(ctx, c.wallet, nil)
}

func (c *Client) bound(address common.Address, parsed abi.ABI) *bind.BoundContract {
	return bind.NewBoundContract(address, parsed, c.eth, c.eth, c.eth)
}

func (c *Client) call(ctx context.Context, address common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx, From: c.wallet}
	if err := c.bound(address, parsed).Call(opts, &out, method, args...); err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	return out, nil
}
