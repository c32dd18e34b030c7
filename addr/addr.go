// Package addr provides typed, non-stringly-typed identifiers for the
// actors in the mesh: bonding users (Address) and staking destinations'
// validators (Valoper). Both wrap raw bytes and are rendered with base58,
// never compared or stored as bare strings.
package addr

import (
	"encoding/hex"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mr-tron/base58"
)

// ErrInvalidLength is returned when decoding bytes of the wrong size.
var ErrInvalidLength = errors.New("addr: invalid length")

const length = 20

// Address identifies a bonding user.
type Address [length]byte

// Valoper identifies a validator at a staking destination.
type Valoper [length]byte

// Destination identifies a staking destination: either the local staking
// collaborator or a remote system reached over the transport.
type Destination [length]byte

func fromBytes(b []byte) ([length]byte, error) {
	var out [length]byte
	if len(b) != length {
		return out, ErrInvalidLength
	}
	copy(out[:], b)
	return out, nil
}

// NewAddress wraps a byte slice of exactly the address length as an
// Address, returning ErrInvalidLength for any other length.
// Tests derive one from a secp256k1 public key via FromPubKey.
func NewAddress(b []byte) (Address, error) {
	raw, err := fromBytes(b)
	return Address(raw), err
}

// NewValoper mirrors NewAddress for validator identifiers.
func NewValoper(b []byte) (Valoper, error) {
	raw, err := fromBytes(b)
	return Valoper(raw), err
}

// FromPubKey derives an Address from a secp256k1 public key by taking the
// low 20 bytes of its compressed serialization, the same convention used
// elsewhere for deriving short IDs from key material rather than minting
// arbitrary strings.
func FromPubKey(pub *secp256k1.PublicKey) Address {
	compressed := pub.SerializeCompressed()
	var out Address
	copy(out[:], compressed[len(compressed)-length:])
	return out
}

func (a Address) String() string     { return base58.Encode(a[:]) }
func (v Valoper) String() string     { return base58.Encode(v[:]) }
func (d Destination) String() string { return base58.Encode(d[:]) }

// MarshalText implements encoding.TextMarshaler, so config print and any
// other JSON encoding of these identifiers renders base58, not a raw
// byte array.
func (a Address) MarshalText() ([]byte, error)     { return []byte(a.String()), nil }
func (v Valoper) MarshalText() ([]byte, error)     { return []byte(v.String()), nil }
func (d Destination) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler, the JSON-decode
// mirror of MarshalText.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (v *Valoper) UnmarshalText(text []byte) error {
	parsed, err := ParseValoper(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (d *Destination) UnmarshalText(text []byte) error {
	parsed, err := ParseDestination(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (a Address) Less(o Address) bool { return hex.EncodeToString(a[:]) < hex.EncodeToString(o[:]) }
func (v Valoper) Less(o Valoper) bool { return hex.EncodeToString(v[:]) < hex.EncodeToString(o[:]) }

// ParseAddress decodes a base58-encoded Address.
func ParseAddress(s string) (Address, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Address{}, err
	}
	raw, err := fromBytes(b)
	return Address(raw), err
}

// ParseValoper decodes a base58-encoded Valoper.
func ParseValoper(s string) (Valoper, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Valoper{}, err
	}
	raw, err := fromBytes(b)
	return Valoper(raw), err
}

// ParseDestination decodes a base58-encoded Destination, the form
// process configuration carries a destination identity in.
func ParseDestination(s string) (Destination, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Destination{}, err
	}
	raw, err := fromBytes(b)
	return Destination(raw), err
}
