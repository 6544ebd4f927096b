package taskrewards

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"azorion/crypto"
)

// Identity is an opaque, comparable participant address. Authorities,
// custody accounts and claimants all share this representation.
type Identity [20]byte

// IdentityFromBytes copies a 20-byte slice into an Identity.
func IdentityFromBytes(b []byte) (Identity, error) {
	var id Identity
	if len(b) != len(id) {
		return id, fmt.Errorf("taskrewards: identity must be %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

// ParseIdentity accepts the bech32 form (azr1...) or a 0x-prefixed hex address.
func ParseIdentity(raw string) (Identity, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Identity{}, fmt.Errorf("taskrewards: empty identity")
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		if !common.IsHexAddress(trimmed) {
			return Identity{}, fmt.Errorf("taskrewards: invalid hex identity %q", raw)
		}
		return Identity(common.HexToAddress(trimmed)), nil
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return Identity{}, fmt.Errorf("taskrewards: invalid identity %q: %w", raw, err)
	}
	if addr.Prefix() != crypto.AZRPrefix {
		return Identity{}, fmt.Errorf("taskrewards: unexpected identity prefix %q", addr.Prefix())
	}
	return IdentityFromBytes(addr.Bytes())
}

// MustParseIdentity is ParseIdentity for constants and tests.
func MustParseIdentity(raw string) Identity {
	id, err := ParseIdentity(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func (id Identity) IsZero() bool { return id == Identity{} }

func (id Identity) Bytes() []byte { return append([]byte(nil), id[:]...) }

// Hex returns the 0x-prefixed lowercase hex encoding.
func (id Identity) Hex() string { return "0x" + hex.EncodeToString(id[:]) }

// String returns the bech32 form.
func (id Identity) String() string {
	return crypto.NewAddress(crypto.AZRPrefix, id[:]).String()
}

// MarshalText implements encoding.TextMarshaler using the bech32 form.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
