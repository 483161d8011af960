// Package chain implements the ledger reader and writer against the
// PredictionMarketAMM contract and its ERC-20 collateral token using a JSON
// RPC endpoint.
package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ammABIJSON covers the read and write surface of the PredictionMarketAMM
// contract that this client uses.
const ammABIJSON = `[
  {"inputs":[],"name":"numMarkets","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"internalType":"uint256","name":"marketId","type":"uint256"}],"name":"getMarket","outputs":[
    {"internalType":"string","name":"question","type":"string"},
    {"internalType":"uint64","name":"endTime","type":"uint64"},
    {"internalType":"bool","name":"resolved","type":"bool"},
    {"internalType":"bool","name":"invalid","type":"bool"},
    {"internalType":"uint8","name":"winningOutcome","type":"uint8"},
    {"internalType":"uint16","name":"feeBps","type":"uint16"},
    {"internalType":"uint256","name":"protocolFeesAccrued","type":"uint256"},
    {"internalType":"uint256","name":"yesLiquidity","type":"uint256"},
    {"internalType":"uint256","name":"noLiquidity","type":"uint256"}
  ],"stateMutability":"view","type":"function"},
  {"inputs":[
    {"internalType":"uint256","name":"marketId","type":"uint256"},
    {"internalType":"address","name":"user","type":"address"}
  ],"name":"getBalances","outputs":[
    {"internalType":"uint256","name":"yesShares","type":"uint256"},
    {"internalType":"uint256","name":"noShares","type":"uint256"}
  ],"stateMutability":"view","type":"function"},
  {"inputs":[
    {"internalType":"uint256","name":"marketId","type":"uint256"},
    {"internalType":"uint8","name":"outcome","type":"uint8"}
  ],"name":"getCurrentPrice","outputs":[
    {"internalType":"uint256","name":"price","type":"uint256"}
  ],"stateMutability":"view","type":"function"},
  {"inputs":[
    {"internalType":"uint256","name":"marketId","type":"uint256"},
    {"internalType":"uint8","name":"outcome","type":"uint8"},
    {"internalType":"uint256","name":"amountIn","type":"uint256"}
  ],"name":"buy","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[{"internalType":"uint256","name":"marketId","type":"uint256"}],"name":"claim","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// erc20ABIJSON covers the two ERC-20 methods the client uses on the
// collateral token.
const erc20ABIJSON = `[
  {"inputs":[
    {"internalType":"address","name":"owner","type":"address"},
    {"internalType":"address","name":"spender","type":"address"}
  ],"name":"allowance","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[
    {"internalType":"address","name":"spender","type":"address"},
    {"internalType":"uint256","name":"amount","type":"uint256"}
  ],"name":"approve","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

// parseABIs parses the embedded ABI definitions. Failure here is a programming
// error, so callers treat it as fatal at construction time.
func parseABIs() (amm abi.ABI, erc20 abi.ABI, err error) {
	amm, err = abi.JSON(strings.NewReader(ammABIJSON))
	if err != nil {
		return amm, erc20, fmt.Errorf("chain: parse amm abi: %w", err)
	}
	erc20, err = abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return amm, erc20, fmt.Errorf("chain: parse erc20 abi: %w", err)
	}
	return amm, erc20, nil
}
