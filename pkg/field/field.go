package field

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// ErrOutOfRange is returned when a value does not fit the BN254 scalar field.
// Values >= Modulus() are rejected, never silently reduced: reduction would let
// two distinct raw inputs collide on the same commitment.
var ErrOutOfRange = errors.New("value out of field range")

// Element is a value in the BN254 scalar field, 0 <= v < Modulus().
type Element struct {
	inner fr.Element
}

// Modulus returns the field prime as a fresh big.Int.
func Modulus() *big.Int { return fr.Modulus() }

// FromBig converts v into an Element. v must satisfy 0 <= v < Modulus().
func FromBig(v *big.Int) (Element, error) {
	if v == nil {
		return Element{}, fmt.Errorf("nil value: %w", ErrOutOfRange)
	}
	if v.Sign() < 0 || v.Cmp(fr.Modulus()) >= 0 {
		return Element{}, fmt.Errorf("value %s: %w", v.String(), ErrOutOfRange)
	}
	var e Element
	e.inner.SetBigInt(v)
	return e, nil
}

// FromUint64 converts v into an Element. Always in range: the modulus is ~254 bits.
func FromUint64(v uint64) Element {
	var e Element
	e.inner.SetUint64(v)
	return e
}

// FromHex parses a big-endian hex string (with or without 0x prefix) and
// bound-checks it like FromBig.
func FromHex(s string) (Element, error) {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Element{}, fmt.Errorf("bad hex %q: %w", s, ErrOutOfRange)
	}
	return FromBig(new(big.Int).SetBytes(b))
}

// NewSalt draws a uniformly random field element from r by rejection sampling:
// sample the full 256-bit width and retry until the sample lands below the
// modulus. The retry probability per draw is ~1 - M/2^256, small but nonzero.
func NewSalt(r io.Reader) (Element, error) {
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, fr.Bytes)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return Element{}, fmt.Errorf("salt entropy: %w", err)
		}
		v := new(big.Int).SetBytes(buf)
		if v.Cmp(fr.Modulus()) < 0 {
			e, err := FromBig(v)
			if err != nil {
				return Element{}, err
			}
			return e, nil
		}
	}
}

// Hash computes the MiMC hash of the given elements. The digest is itself a
// field element, so the result always satisfies the field bound.
func Hash(elems ...Element) Element {
	h := mimc.NewMiMC()
	for _, e := range elems {
		b := e.inner.Bytes()
		// canonical 32-byte blocks are always accepted by the MiMC writer
		_, _ = h.Write(b[:])
	}
	var out Element
	out.inner.SetBytes(h.Sum(nil))
	return out
}

// Big returns the value as a fresh big.Int.
func (e Element) Big() *big.Int {
	v := new(big.Int)
	e.inner.BigInt(v)
	return v
}

// Bytes returns the canonical 32-byte big-endian encoding.
func (e Element) Bytes() []byte {
	b := e.inner.Bytes()
	return b[:]
}

// Hex returns the fixed-width 64-char lowercase hex encoding used as a
// storage/lookup key.
func (e Element) Hex() string { return hex.EncodeToString(e.Bytes()) }

// Equal reports whether two elements hold the same value.
func (e Element) Equal(o Element) bool { return e.inner.Equal(&o.inner) }

// IsZero reports whether the element is zero.
func (e Element) IsZero() bool { return e.inner.IsZero() }
