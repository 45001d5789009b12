package solana

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
)

// SignatureInfo is the domain view of a confirmed signature, independent of
// the RPC response format.
type SignatureInfo struct {
	Signature string
	Slot      uint64
	Failed    bool
	BlockTime time.Time
}

// Client wraps the JSON-RPC client with the few read-only calls the payment
// engine needs. It never signs or broadcasts anything.
type Client struct {
	rpc *rpc.Client
}

func New(endpoint string) *Client {
	return &Client{rpc: rpc.New(endpoint)}
}

// LatestBlockhash fetches the checkpoint that bounds a transaction's validity
// window.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch latest blockhash")
	}
	return out.Value.Blockhash, nil
}

// MintDecimals resolves the decimal precision of a token mint.
func (c *Client) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	out, err := c.rpc.GetTokenSupply(ctx, mint, rpc.CommitmentFinalized)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve mint decimals")
	}
	if out == nil || out.Value == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "mint supply response empty")
	}
	return out.Value.Decimals, nil
}

// AccountExists reports whether an account is present on chain. Used to
// decide whether an associated token account must be created first.
func (c *Client) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	_, err := c.rpc.GetAccountInfo(ctx, account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probe account")
	}
	return true, nil
}

// SignaturesFor lists recent signatures touching the given account, newest
// first. The poller points this at a payment's reference key.
func (c *Client) SignaturesFor(ctx context.Context, account solana.PublicKey, limit int) ([]SignatureInfo, error) {
	opts := &rpc.GetSignaturesForAddressOpts{Commitment: rpc.CommitmentConfirmed}
	if limit > 0 {
		opts.Limit = &limit
	}
	out, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, account, opts)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list signatures")
	}

	infos := make([]SignatureInfo, 0, len(out))
	for _, sig := range out {
		if sig == nil {
			continue
		}
		info := SignatureInfo{
			Signature: sig.Signature.String(),
			Slot:      sig.Slot,
			Failed:    sig.Err != nil,
		}
		if sig.BlockTime != nil {
			info.BlockTime = sig.BlockTime.Time()
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// PaymentTotals is what one settled transaction delivered to a single
// account: its lamport balance increase plus any token balance increases
// attributed to it as owner, keyed by mint and in base units.
type PaymentTotals struct {
	Lamports   uint64
	TokenUnits map[solana.PublicKey]uint64
}

// PaymentTo fetches a settled transaction and sums what it paid to account.
// Balance deltas come from the transaction meta, so the result reflects what
// actually moved rather than what the instructions claim.
func (c *Client) PaymentTo(ctx context.Context, signature string, account solana.PublicKey) (*PaymentTotals, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction signature")
	}

	version := uint64(0)
	out, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &version,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch transaction")
	}
	if out == nil || out.Meta == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction response empty")
	}
	tx, err := out.Transaction.GetTransaction()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode transaction")
	}

	totals := &PaymentTotals{TokenUnits: map[solana.PublicKey]uint64{}}
	for i, key := range tx.Message.AccountKeys {
		if !key.Equals(account) {
			continue
		}
		if i < len(out.Meta.PreBalances) && i < len(out.Meta.PostBalances) {
			if post, pre := out.Meta.PostBalances[i], out.Meta.PreBalances[i]; post > pre {
				totals.Lamports += post - pre
			}
		}
	}

	pre := make(map[uint16]uint64, len(out.Meta.PreTokenBalances))
	for _, tb := range out.Meta.PreTokenBalances {
		if tb.Owner != nil && tb.Owner.Equals(account) {
			pre[tb.AccountIndex] = tokenUnits(tb.UiTokenAmount)
		}
	}
	for _, tb := range out.Meta.PostTokenBalances {
		if tb.Owner == nil || !tb.Owner.Equals(account) {
			continue
		}
		if post := tokenUnits(tb.UiTokenAmount); post > pre[tb.AccountIndex] {
			totals.TokenUnits[tb.Mint] += post - pre[tb.AccountIndex]
		}
	}
	return totals, nil
}

func tokenUnits(amount *rpc.UiTokenAmount) uint64 {
	if amount == nil {
		return 0
	}
	units, err := strconv.ParseUint(amount.Amount, 10, 64)
	if err != nil {
		return 0
	}
	return units
}

// Ping checks RPC node health for the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	out, err := c.rpc.GetHealth(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rpc health")
	}
	if out != rpc.HealthOk {
		return pkgerrors.New(pkgerrors.CodeDependency, "rpc node unhealthy")
	}
	return nil
}
