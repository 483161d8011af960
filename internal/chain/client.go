package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/ammdesk/internal/domain"
)

// Client issues read-only queries against the token and market contracts.
// It implements domain.LedgerReader. All reads are independent eth_call
// requests; none blocks any other, and each may be retried freely.
type Client struct {
	eth    *ethclient.Client
	amm    *bind.BoundContract
	erc20  *bind.BoundContract
	token  common.Address
	market common.Address
	logger *slog.Logger
}

// Dial connects to the RPC endpoint and binds the two contracts.
func Dial(ctx context.Context, rpcURL string, token, market common.Address, logger *slog.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial rpc: %w", err)
	}

	ammABI, erc20ABI, err := parseABIs()
	if err != nil {
		eth.Close()
		return nil, err
	}

	return &Client{
		eth:    eth,
		amm:    bind.NewBoundContract(market, ammABI, eth, eth, eth),
		erc20:  bind.NewBoundContract(token, erc20ABI, eth, eth, eth),
		token:  token,
		market: market,
		logger: logger.With(slog.String("component", "chain")),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// Eth exposes the raw client for receipt polling.
func (c *Client) Eth() *ethclient.Client {
	return c.eth
}

// Allowance returns allowance(owner, spender) on the collateral token.
func (c *Client) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var out []any
	if err := c.erc20.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", owner, spender); err != nil {
		return nil, fmt.Errorf("chain: allowance(%s,%s): %w", owner.Hex(), spender.Hex(), err)
	}
	return asBigInt(out, 0)
}

// MarketCount returns numMarkets() on the AMM.
func (c *Client) MarketCount(ctx context.Context) (uint64, error) {
	var out []any
	if err := c.amm.Call(&bind.CallOpts{Context: ctx}, &out, "numMarkets"); err != nil {
		return 0, fmt.Errorf("chain: numMarkets: %w", err)
	}
	n, err := asBigInt(out, 0)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("chain: numMarkets overflows uint64")
	}
	return n.Uint64(), nil
}

// Market returns getMarket(id) decoded into the domain type.
func (c *Client) Market(ctx context.Context, id uint64) (domain.Market, error) {
	var out []any
	if err := c.amm.Call(&bind.CallOpts{Context: ctx}, &out, "getMarket", new(big.Int).SetUint64(id)); err != nil {
		return domain.Market{}, fmt.Errorf("chain: getMarket(%d): %w", id, err)
	}
	if len(out) != 9 {
		return domain.Market{}, fmt.Errorf("chain: getMarket(%d): expected 9 outputs, got %d", id, len(out))
	}

	m := domain.Market{ID: id}
	var ok bool
	if m.Question, ok = out[0].(string); !ok {
		return domain.Market{}, fmt.Errorf("chain: getMarket(%d): bad question type %T", id, out[0])
	}
	endTime, ok := out[1].(uint64)
	if !ok {
		return domain.Market{}, fmt.Errorf("chain: getMarket(%d): bad endTime type %T", id, out[1])
	}
	m.EndTime = int64(endTime)
	if m.Resolved, ok = out[2].(bool); !ok {
		return domain.Market{}, fmt.Errorf("chain: getMarket(%d): bad resolved type %T", id, out[2])
	}
	if m.Invalid, ok = out[3].(bool); !ok {
		return domain.Market{}, fmt.Errorf("chain: getMarket(%d): bad invalid type %T", id, out[3])
	}
	winner, ok := out[4].(uint8)
	if !ok {
		return domain.Market{}, fmt.Errorf("chain: getMarket(%d): bad winningOutcome type %T", id, out[4])
	}
	m.Winner = domain.Outcome(winner)
	feeBps, ok := out[5].(uint16)
	if !ok {
		return domain.Market{}, fmt.Errorf("chain: getMarket(%d): bad feeBps type %T", id, out[5])
	}
	m.FeeBps = feeBps

	var err error
	if m.ProtocolFees, err = asBigInt(out, 6); err != nil {
		return domain.Market{}, fmt.Errorf("chain: getMarket(%d): %w", id, err)
	}
	if m.LiquidityA, err = asBigInt(out, 7); err != nil {
		return domain.Market{}, fmt.Errorf("chain: getMarket(%d): %w", id, err)
	}
	if m.LiquidityB, err = asBigInt(out, 8); err != nil {
		return domain.Market{}, fmt.Errorf("chain: getMarket(%d): %w", id, err)
	}
	return m, nil
}

// Position returns getBalances(id, user).
func (c *Client) Position(ctx context.Context, id uint64, user common.Address) (domain.Position, error) {
	var out []any
	if err := c.amm.Call(&bind.CallOpts{Context: ctx}, &out, "getBalances", new(big.Int).SetUint64(id), user); err != nil {
		return domain.Position{}, fmt.Errorf("chain: getBalances(%d,%s): %w", id, user.Hex(), err)
	}
	sharesA, err := asBigInt(out, 0)
	if err != nil {
		return domain.Position{}, fmt.Errorf("chain: getBalances(%d): %w", id, err)
	}
	sharesB, err := asBigInt(out, 1)
	if err != nil {
		return domain.Position{}, fmt.Errorf("chain: getBalances(%d): %w", id, err)
	}
	return domain.Position{SharesA: sharesA, SharesB: sharesB}, nil
}

// Price returns getCurrentPrice(id, outcome), scaled by 1e18.
func (c *Client) Price(ctx context.Context, id uint64, outcome domain.Outcome) (*big.Int, error) {
	if !outcome.Valid() {
		return nil, fmt.Errorf("chain: getCurrentPrice(%d): invalid outcome %d", id, outcome)
	}
	var out []any
	if err := c.amm.Call(&bind.CallOpts{Context: ctx}, &out, "getCurrentPrice", new(big.Int).SetUint64(id), uint8(outcome)); err != nil {
		return nil, fmt.Errorf("chain: getCurrentPrice(%d,%s): %w", id, outcome, err)
	}
	return asBigInt(out, 0)
}

// asBigInt extracts output i as a *big.Int.
func asBigInt(out []any, i int) (*big.Int, error) {
	if i >= len(out) {
		return nil, fmt.Errorf("missing output %d", i)
	}
	v, ok := out[i].(*big.Int)
	if !ok || v == nil {
		return nil, fmt.Errorf("output %d is %T, not *big.Int", i, out[i])
	}
	return v, nil
}
