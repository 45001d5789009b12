package txbuilder

import (
	"github.com/gagliardetto/solana-go"

	pkgerrors "github.com/solshop/solshop-backend/pkg/errors"
)

// Reference is a single-use correlation key. It is embedded in the payment
// transaction as a read-only, non-signing account meta so the settling
// transaction becomes discoverable by address lookup once it lands. One
// reference per build; reuse is a caller error the ledger rejects.
type Reference struct {
	key solana.PublicKey
}

// NewReference generates a fresh key. The keypair's private half is
// discarded; only the address matters.
func NewReference() Reference {
	return Reference{key: solana.NewWallet().PublicKey()}
}

// ParseReference validates a base58-encoded reference.
func ParseReference(value string) (Reference, error) {
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return Reference{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reference")
	}
	return Reference{key: key}, nil
}

func (r Reference) PublicKey() solana.PublicKey {
	return r.key
}

func (r Reference) String() string {
	return r.key.String()
}

func (r Reference) IsZero() bool {
	return r.key.IsZero()
}
