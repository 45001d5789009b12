package txbuilder

import (
	"context"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
)

// transferPlan is the sum type over native and tokenized transfers. Both
// variants feed one emission routine so the fee-split and memo logic is
// written once.
type transferPlan interface {
	// prepareDestinations resolves the holding account for each destination
	// owner, queueing a creation for any account that does not exist yet.
	// The owner list is final: callers decide the treasury leg before this
	// runs.
	prepareDestinations(ctx context.Context, client ChainClient, owners []solana.PublicKey) error
	// setupInstructions creates any missing holding accounts. These are
	// ordered strictly before the transfers that target them.
	setupInstructions() []solana.Instruction
	// transferInstruction moves base units from the payer to the account
	// owned by destOwner.
	transferInstruction(destOwner solana.PublicKey, baseUnits uint64) solana.Instruction
}

// nativePlan transfers lamports directly between system accounts.
type nativePlan struct {
	payer solana.PublicKey
}

func (p nativePlan) prepareDestinations(ctx context.Context, client ChainClient, owners []solana.PublicKey) error {
	return nil
}

func (p nativePlan) setupInstructions() []solana.Instruction {
	return nil
}

func (p nativePlan) transferInstruction(destOwner solana.PublicKey, baseUnits uint64) solana.Instruction {
	return system.NewTransferInstruction(baseUnits, p.payer, destOwner).Build()
}

// tokenPlan transfers an SPL token between associated token accounts,
// creating missing destination accounts on the payer's lamports first.
type tokenPlan struct {
	payer     solana.PublicKey
	mint      solana.PublicKey
	decimals  uint8
	sourceATA solana.PublicKey
	destATAs  map[solana.PublicKey]solana.PublicKey
	creations []solana.Instruction
}

func (p *tokenPlan) setupInstructions() []solana.Instruction {
	return p.creations
}

func (p *tokenPlan) transferInstruction(destOwner solana.PublicKey, baseUnits uint64) solana.Instruction {
	return token.NewTransferCheckedInstruction(
		baseUnits,
		p.decimals,
		p.sourceATA,
		p.mint,
		p.destATAs[destOwner],
		p.payer,
		nil,
	).Build()
}

func (p *tokenPlan) prepareDestinations(ctx context.Context, client ChainClient, owners []solana.PublicKey) error {
	for _, owner := range owners {
		ata, _, err := solana.FindAssociatedTokenAddress(owner, p.mint)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "derive destination token account")
		}
		exists, err := client.AccountExists(ctx, ata)
		if err != nil {
			return err
		}
		p.destATAs[owner] = ata
		if !exists {
			p.creations = append(p.creations, associatedtokenaccount.NewCreateInstruction(p.payer, owner, p.mint).Build())
		}
	}
	return nil
}
