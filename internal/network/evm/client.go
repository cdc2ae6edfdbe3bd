package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Config describes how to reach an EVM compatible attestation network.
type Config struct {
	Name   string
	RPCURL string
	APIKey string
	Notes  string
}

// Snapshot summarises the state of the remote chain.
type Snapshot struct {
	ChainID     string
	BlockNumber uint64
	Notes       string
}

// Client wraps a JSON-RPC connection to an EVM node.
type Client struct {
	name      string
	notes     string
	rpcClient *gethrpc.Client
	eth       *ethclient.Client
	mu        sync.Mutex
}

// Dial connects to the configured RPC endpoint. An API key is sent as a
// bearer Authorization header.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("未配置 RPC 地址")
	}
	var opts []gethrpc.ClientOption
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		opts = append(opts, gethrpc.WithHeader("Authorization", "Bearer "+key))
	}
	rpcClient, err := gethrpc.DialOptions(ctx, rpcURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("连接节点失败: %w", err)
	}
	return &Client{
		name:      cfg.Name,
		notes:     cfg.Notes,
		rpcClient: rpcClient,
		eth:       ethclient.NewClient(rpcClient),
	}, nil
}

// Name returns the configured network name.
func (c *Client) Name() string {
	return c.name
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
	}
	c.rpcClient = nil
}

func (c *Client) backend() (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eth == nil {
		return nil, errors.New("客户端已关闭")
	}
	return c.eth, nil
}

// Snapshot fetches the chain id and head block number.
func (c *Client) Snapshot(ctx context.Context) (Snapshot, error) {
	eth, err := c.backend()
	if err != nil {
		return Snapshot{}, err
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("获取链 ID 失败: %w", err)
	}
	blockNumber, err := eth.BlockNumber(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("获取最新区块高度失败: %w", err)
	}
	return Snapshot{ChainID: toHexBig(chainID), BlockNumber: blockNumber, Notes: c.notes}, nil
}

// HasContract reports whether code is deployed at address.
func (c *Client) HasContract(ctx context.Context, address string) (bool, error) {
	if !common.IsHexAddress(address) {
		return false, fmt.Errorf("无效的合约地址 %q", address)
	}
	eth, err := c.backend()
	if err != nil {
		return false, err
	}
	code, err := eth.CodeAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return false, fmt.Errorf("查询合约代码失败: %w", err)
	}
	return len(code) > 0, nil
}

func toHexBig(n *big.Int) string {
	if n == nil {
		return "0x0"
	}
	return "0x" + n.Text(16)
}
