package money

import (
	"database/sql/driver"
	"fmt"
	"math/big"
)

// Amount is a non-negative integer token amount in the smallest unit (wei-style,
// 18 decimals by convention). All arithmetic is exact integer math; no floats.
// Stored in SQL as a decimal string (varchar(78) holds any 256-bit value).
type Amount struct {
	v big.Int
}

func FromInt64(v int64) Amount {
	var a Amount
	a.v.SetInt64(v)
	return a
}

// FromString parses a base-10 amount. Negative and malformed inputs fail.
func FromString(s string) (Amount, error) {
	var a Amount
	if _, ok := a.v.SetString(s, 10); !ok {
		return Amount{}, fmt.Errorf("bad amount %q", s)
	}
	if a.v.Sign() < 0 {
		return Amount{}, fmt.Errorf("negative amount %q", s)
	}
	return a, nil
}

// Units returns n * 10^18, the conventional whole-token helper.
func Units(n int64) Amount {
	var a Amount
	a.v.SetInt64(n)
	a.v.Mul(&a.v, big.NewInt(1_000_000_000_000_000_000))
	return a
}

func (a Amount) String() string     { return a.v.String() }
func (a Amount) Big() *big.Int      { return new(big.Int).Set(&a.v) }
func (a Amount) IsZero() bool       { return a.v.Sign() == 0 }
func (a Amount) Cmp(b Amount) int   { return a.v.Cmp(&b.v) }
func (a Amount) Equal(b Amount) bool { return a.v.Cmp(&b.v) == 0 }

func (a Amount) Add(b Amount) Amount {
	var out Amount
	out.v.Add(&a.v, &b.v)
	return out
}

// Sub returns a-b; it is the caller's job to check Cmp first, a negative
// result fails.
func (a Amount) Sub(b Amount) (Amount, error) {
	var out Amount
	out.v.Sub(&a.v, &b.v)
	if out.v.Sign() < 0 {
		return Amount{}, fmt.Errorf("amount underflow: %s - %s", a.String(), b.String())
	}
	return out, nil
}

// AddInterest returns a + a*bps/10000 with the fractional remainder rounded
// DOWN (big.Int Quo truncation). 50e18 at 500 bps yields exactly 52.5e18.
func (a Amount) AddInterest(bps uint32) Amount {
	var interest big.Int
	interest.Mul(&a.v, big.NewInt(int64(bps)))
	interest.Quo(&interest, big.NewInt(10_000))
	var out Amount
	out.v.Add(&a.v, &interest)
	return out
}

// Value implements driver.Valuer: amounts persist as base-10 strings.
func (a Amount) Value() (driver.Value, error) { return a.v.String(), nil }

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		a.v.SetInt64(0)
		return nil
	case string:
		parsed, err := FromString(s)
		if err != nil {
			return err
		}
		a.v.Set(&parsed.v)
		return nil
	case []byte:
		parsed, err := FromString(string(s))
		if err != nil {
			return err
		}
		a.v.Set(&parsed.v)
		return nil
	case int64:
		a.v.SetInt64(s)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into money.Amount", src)
	}
}

// GormDataType keeps migrations portable between mysql and sqlite.
func (Amount) GormDataType() string { return "varchar(78)" }
