package txbuilder

import (
	"context"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/solshop/solshop-backend/internal/fees"
	"github.com/solshop/solshop-backend/pkg/enums"
	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
)

// ChainClient is the read-only network surface the builder needs: asset
// metadata and the checkpoint that bounds a transaction's validity window.
type ChainClient interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
}

// BuildParams describes one transfer to construct. Reference must be fresh
// per call.
type BuildParams struct {
	Asset     enums.Asset
	Payer     solana.PublicKey
	Merchant  solana.PublicKey
	Amount    decimal.Decimal
	Reference Reference
	Memo      string
}

// BuiltTransfer is an unsigned transaction plus the fee split it encodes.
// MerchantUnits is the merchant's portion in the asset's base units and Mint
// is nil for native transfers; confirmation watching uses both to verify
// that a discovered transaction actually pays the merchant.
type BuiltTransfer struct {
	Transaction   *solana.Transaction
	Base64        string
	Breakdown     fees.Breakdown
	Reference     Reference
	MerchantUnits uint64
	Mint          *solana.PublicKey
}

// Builder constructs unsigned, fee-split transfer transactions. It is a pure
// constructor: it never signs, never broadcasts, and touches the network
// only for metadata and the latest blockhash.
type Builder struct {
	client   ChainClient
	calc     fees.Calculator
	usdcMint solana.PublicKey
	treasury *solana.PublicKey
}

func NewBuilder(client ChainClient, calc fees.Calculator, usdcMint string) (*Builder, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "chain client required")
	}

	mint, err := solana.PublicKeyFromBase58(strings.TrimSpace(usdcMint))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid usdc mint address")
	}

	b := &Builder{client: client, calc: calc, usdcMint: mint}

	if addr := calc.TreasuryAddress(); addr != "" {
		treasury, err := solana.PublicKeyFromBase58(addr)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid treasury address")
		}
		b.treasury = &treasury
	}
	return b, nil
}

// BuildTransfer produces the ordered instruction list for one payment:
// holding-account creations (token only), the merchant transfer carrying the
// reference, the treasury transfer when fee routing applies, and an optional
// memo.
func (b *Builder) BuildTransfer(ctx context.Context, params BuildParams) (*BuiltTransfer, error) {
	if !params.Asset.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported asset")
	}
	if params.Payer.IsZero() || params.Merchant.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer and merchant accounts required")
	}
	if params.Amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if params.Reference.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}

	plan, decimals, err := b.planFor(ctx, params)
	if err != nil {
		return nil, err
	}

	breakdown := b.calc.Calculate(params.Amount, decimals)

	merchantUnits, err := toBaseUnits(breakdown.Merchant, decimals)
	if err != nil {
		return nil, err
	}
	feeUnits, err := toBaseUnits(breakdown.Fee, decimals)
	if err != nil {
		return nil, err
	}

	// The treasury leg exists only when the computed fee is non-zero, so a
	// fee that rounds away never creates a holding account that would
	// receive nothing.
	routeFee := feeUnits > 0 && b.treasury != nil
	owners := []solana.PublicKey{params.Merchant}
	if routeFee {
		owners = append(owners, *b.treasury)
	}
	if err := plan.prepareDestinations(ctx, b.client, owners); err != nil {
		return nil, err
	}

	instructions := append([]solana.Instruction{}, plan.setupInstructions()...)

	merchantTransfer, err := withReference(plan.transferInstruction(params.Merchant, merchantUnits), params.Reference.PublicKey())
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, merchantTransfer)

	if routeFee {
		instructions = append(instructions, plan.transferInstruction(*b.treasury, feeUnits))
	}

	if memo := strings.TrimSpace(params.Memo); memo != "" {
		instructions = append(instructions, memoInstruction(memo, params.Payer))
	}

	blockhash, err := b.client.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(params.Payer))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assemble transaction")
	}
	encoded, err := tx.ToBase64()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serialize transaction")
	}

	built := &BuiltTransfer{
		Transaction:   tx,
		Base64:        encoded,
		Breakdown:     breakdown,
		Reference:     params.Reference,
		MerchantUnits: merchantUnits,
	}
	if !params.Asset.Native() {
		mint := b.usdcMint
		built.Mint = &mint
	}
	return built, nil
}

func (b *Builder) planFor(ctx context.Context, params BuildParams) (transferPlan, int32, error) {
	if params.Asset.Native() {
		return nativePlan{payer: params.Payer}, params.Asset.Decimals(), nil
	}

	decimals, err := b.client.MintDecimals(ctx, b.usdcMint)
	if err != nil {
		return nil, 0, err
	}

	sourceATA, _, err := solana.FindAssociatedTokenAddress(params.Payer, b.usdcMint)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "derive payer token account")
	}

	return &tokenPlan{
		payer:     params.Payer,
		mint:      b.usdcMint,
		decimals:  decimals,
		sourceATA: sourceATA,
		destATAs:  map[solana.PublicKey]solana.PublicKey{},
	}, int32(decimals), nil
}

// withReference appends the correlation key as a read-only non-signer meta
// so an address lookup on the key finds the settling transaction.
func withReference(inst solana.Instruction, reference solana.PublicKey) (solana.Instruction, error) {
	data, err := inst.Data()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "instruction data")
	}
	accounts := append(solana.AccountMetaSlice{}, inst.Accounts()...)
	accounts = append(accounts, &solana.AccountMeta{PublicKey: reference})
	return solana.NewInstruction(inst.ProgramID(), accounts, data), nil
}

func memoInstruction(memo string, payer solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		solana.MemoProgramID,
		solana.AccountMetaSlice{solana.Meta(payer).SIGNER()},
		[]byte(memo),
	)
}

// toBaseUnits converts a display-unit amount to the asset's base units.
func toBaseUnits(amount decimal.Decimal, decimals int32) (uint64, error) {
	shifted := amount.Shift(decimals)
	if !shifted.IsInteger() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount precision exceeds asset decimals")
	}
	if shifted.Sign() < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	big := shifted.BigInt()
	if !big.IsUint64() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount exceeds transferable range")
	}
	return big.Uint64(), nil
}
