package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mrz1836/testament/internal/provider"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// DefaultPollInterval is how often WaitMined asks for a receipt.
const DefaultPollInterval = time.Second

// Receipt is the subset of a transaction receipt the client inspects.
type Receipt struct {
	TxHash      common.Hash    `json:"transactionHash"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	GasUsed     hexutil.Uint64 `json:"gasUsed"`
	Status      hexutil.Uint64 `json:"status"`
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r.Status == 1
}

// WaitMined polls for the receipt of hash until it is available or ctx is
// done. A receipt with status 0 is returned together with ErrTxReverted.
func WaitMined(ctx context.Context, p provider.Provider, hash common.Hash, interval time.Duration) (*Receipt, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := fetchReceipt(ctx, p, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			if !receipt.Succeeded() {
				return receipt, tmerr.WithDetails(tmerr.ErrTxReverted, map[string]string{"tx": hash.Hex()})
			}
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func fetchReceipt(ctx context.Context, p provider.Provider, hash common.Hash) (*Receipt, error) {
	raw, err := p.Request(ctx, provider.MethodGetReceipt, hash.Hex())
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil //nolint:nilnil // pending transaction has no receipt yet
	}

	var r Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decoding receipt for %s: %w", hash.Hex(), err)
	}
	return &r, nil
}
