package willclient

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/testament/internal/contract"
	"github.com/mrz1836/testament/internal/metrics"
	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// Will is a will owned by the connected account.
type Will struct {
	TokenID      uint64         `json:"token_id"`
	Beneficiary  common.Address `json:"beneficiary"`
	AssetType    uint8          `json:"asset_type"`
	AssetAddress common.Address `json:"asset_address"`
	AmountOrID   string         `json:"amount_or_id"`
	Metadata     string         `json:"metadata"`
	Active       bool           `json:"active"`
	Image        string         `json:"image,omitempty"`
}

func newWill(w contract.Will) Will {
	amount := "0"
	if w.AssetInfo.AmountOrID != nil {
		amount = w.AssetInfo.AmountOrID.String()
	}
	return Will{
		TokenID:      w.TokenID,
		Beneficiary:  w.Beneficiary,
		AssetType:    w.AssetType,
		AssetAddress: w.AssetInfo.AssetAddress,
		AmountOrID:   amount,
		Metadata:     w.AssetInfo.Metadata,
		Active:       w.Active,
		Image:        ImageFromMetadata(w.AssetInfo.Metadata),
	}
}

// MintRequest is the input of MintNFT. Addresses and the amount are kept as
// entered and validated by MintNFT.
type MintRequest struct {
	Beneficiary  string
	AssetType    uint8
	AssetAddress string
	AmountOrID   string
	// AmountInEther reads AmountOrID as an ether value and submits wei.
	AmountInEther bool
	Metadata      string
	ImageURL      string
}

// WillsForUser lists the wills owned by the connected account. Token ids
// are probed in ascending order from 1 up to the scan limit; the first id
// whose owner lookup reverts ends the scan.
func (c *Client) WillsForUser(ctx context.Context) ([]Will, error) {
	binding, account, err := c.handle()
	if err != nil {
		return nil, err
	}

	wills, err := c.scan(ctx, binding, account)
	c.metrics.RecordOp(metrics.OpScan, err)
	if err != nil {
		c.logger.Error("fetching wills for %s: %v", account.Hex(), err)
		return nil, tmerr.Because(tmerr.ErrFetchWills, err)
	}
	return wills, nil
}

func (c *Client) scan(ctx context.Context, binding *contract.Binding, account common.Address) ([]Will, error) {
	wills := []Will{}
	for id := uint64(1); id <= uint64(c.opts.ScanLimit); id++ {
		owner, err := binding.OwnerOf(ctx, id)
		if errors.Is(err, contract.ErrNoSuchToken) {
			c.logger.Debug("scan stopped at token %d", id)
			break
		}
		if err != nil {
			return nil, err
		}

		owned := owner == account
		c.metrics.RecordProbe(owned)
		if !owned {
			continue
		}

		w, err := binding.Wills(ctx, id)
		if err != nil {
			return nil, err
		}
		wills = append(wills, newWill(w))
	}
	return wills, nil
}

// MintNFT creates a will and waits for it to be mined. The image URL is
// merged into the metadata object before submission.
func (c *Client) MintNFT(ctx context.Context, req MintRequest) (common.Hash, error) {
	binding, account, err := c.handle()
	if err != nil {
		return common.Hash{}, err
	}

	hash, err := c.mint(ctx, binding, account, req)
	c.metrics.RecordOp(metrics.OpMint, err)
	if err != nil {
		c.logger.Error("minting will: %v", err)
		return hash, tmerr.Because(tmerr.ErrMintFailed, err)
	}
	c.logger.Debug("minted will tx=%s", hash.Hex())
	return hash, nil
}

func (c *Client) mint(ctx context.Context, binding *contract.Binding, account common.Address, req MintRequest) (common.Hash, error) {
	beneficiary, err := parseAddress("beneficiary", req.Beneficiary)
	if err != nil {
		return common.Hash{}, err
	}
	assetAddress, err := parseAddress("asset address", req.AssetAddress)
	if err != nil {
		return common.Hash{}, err
	}
	amount, err := contract.ParseAmount(req.AmountOrID, req.AmountInEther)
	if err != nil {
		return common.Hash{}, err
	}
	metadata, err := MergeImage(req.Metadata, req.ImageURL)
	if err != nil {
		return common.Hash{}, err
	}

	hash, err := binding.MintNFT(ctx, account, beneficiary, req.AssetType, assetAddress, amount, metadata)
	if err != nil {
		return common.Hash{}, err
	}
	_, err = contract.WaitMined(ctx, c.provider, hash, c.opts.ReceiptPoll)
	return hash, err
}

// CheckIn submits a check-in for tokenID and waits for it to be mined.
func (c *Client) CheckIn(ctx context.Context, tokenID uint64) (common.Hash, error) {
	binding, account, err := c.handle()
	if err != nil {
		return common.Hash{}, err
	}

	hash, err := binding.CheckIn(ctx, account, tokenID)
	if err == nil {
		_, err = contract.WaitMined(ctx, c.provider, hash, c.opts.ReceiptPoll)
	}
	c.metrics.RecordOp(metrics.OpCheckIn, err)
	if err != nil {
		c.logger.Error("checking in will %d: %v", tokenID, err)
		return hash, tmerr.Because(tmerr.ErrCheckInFailed, err)
	}
	return hash, nil
}

// TokenURI reads the token URI of tokenID.
func (c *Client) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	binding, _, err := c.handle()
	if err != nil {
		return "", err
	}
	return binding.TokenURI(ctx, tokenID)
}

// Will reads a single will record regardless of owner.
func (c *Client) Will(ctx context.Context, tokenID uint64) (Will, error) {
	binding, _, err := c.handle()
	if err != nil {
		return Will{}, err
	}
	w, err := binding.Wills(ctx, tokenID)
	if err != nil {
		return Will{}, err
	}
	return newWill(w), nil
}

func parseAddress(field, s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, tmerr.WithDetails(tmerr.ErrInvalidAddress, map[string]string{field: s})
	}
	return common.HexToAddress(s), nil
}
