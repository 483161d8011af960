package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/ammdesk/internal/domain"
)

// receiptPollInterval is how often WaitConfirmed asks the node for a receipt.
const receiptPollInterval = 2 * time.Second

// Writer submits approve/buy/claim transactions signed with a local key. It
// implements domain.LedgerWriter. Finalization is reported by WaitConfirmed,
// which polls for the receipt with no built-in timeout; cancellation is the
// caller's context.
type Writer struct {
	client *Client
	opts   *bind.TransactOpts
	from   common.Address
	logger *slog.Logger
}

// NewWriter builds a Writer on top of an existing Client using a hex-decoded
// secp256k1 private key and the target chain id.
func NewWriter(client *Client, key *ecdsa.PrivateKey, chainID int64, logger *slog.Logger) (*Writer, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(chainID))
	if err != nil {
		return nil, fmt.Errorf("chain: keyed transactor: %w", err)
	}
	return &Writer{
		client: client,
		opts:   opts,
		from:   ethcrypto.PubkeyToAddress(key.PublicKey),
		logger: logger.With(slog.String("component", "chain_writer")),
	}, nil
}

// From returns the signing address.
func (w *Writer) From() common.Address {
	return w.from
}

// Approve submits approve(spender, amount) on the collateral token.
func (w *Writer) Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error) {
	tx, err := w.client.erc20.Transact(w.txOpts(ctx), "approve", spender, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: approve: %w", err)
	}
	w.logger.InfoContext(ctx, "approve submitted",
		slog.String("spender", spender.Hex()),
		slog.String("tx", tx.Hash().Hex()),
	)
	return tx.Hash(), nil
}

// Buy submits buy(marketId, outcome, amountIn) on the AMM.
func (w *Writer) Buy(ctx context.Context, id uint64, outcome domain.Outcome, amountIn *big.Int) (common.Hash, error) {
	if !outcome.Valid() {
		return common.Hash{}, fmt.Errorf("chain: buy: %w: outcome %d", domain.ErrInvalidAmount, outcome)
	}
	tx, err := w.client.amm.Transact(w.txOpts(ctx), "buy", new(big.Int).SetUint64(id), uint8(outcome), amountIn)
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: buy market %d: %w", id, err)
	}
	w.logger.InfoContext(ctx, "buy submitted",
		slog.Uint64("market", id),
		slog.String("outcome", outcome.String()),
		slog.String("amount", amountIn.String()),
		slog.String("tx", tx.Hash().Hex()),
	)
	return tx.Hash(), nil
}

// Claim submits claim(marketId) on the AMM.
func (w *Writer) Claim(ctx context.Context, id uint64) (common.Hash, error) {
	tx, err := w.client.amm.Transact(w.txOpts(ctx), "claim", new(big.Int).SetUint64(id))
	if err != nil {
		return common.Hash{}, fmt.Errorf("chain: claim market %d: %w", id, err)
	}
	w.logger.InfoContext(ctx, "claim submitted",
		slog.Uint64("market", id),
		slog.String("tx", tx.Hash().Hex()),
	)
	return tx.Hash(), nil
}

// WaitConfirmed polls until the transaction has a receipt. It returns nil for
// a successful transaction and an error when the transaction reverted.
func (w *Writer) WaitConfirmed(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := w.client.eth.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			if receipt.Status == 1 {
				return nil
			}
			return fmt.Errorf("chain: transaction %s reverted", hash.Hex())
		}
		// "not found" just means not mined yet; anything else is worth a
		// debug line but never aborts the wait.
		if err != nil && ctx.Err() == nil {
			w.logger.DebugContext(ctx, "receipt not available yet",
				slog.String("tx", hash.Hex()),
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("chain: wait for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// txOpts clones the cached transactor options with the per-call context.
func (w *Writer) txOpts(ctx context.Context) *bind.TransactOpts {
	opts := *w.opts
	opts.Context = ctx
	return &opts
}
