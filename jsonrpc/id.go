package jsonrpc

import (
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

type idKind uint8

const (
	idNone idKind = iota
	idString
	idNumber
)

// ID is a request/response correlation value: either a string or a signed
// 32-bit integer. The zero ID means "no identifier" and is never written to
// the wire.
//
// IDs are comparable; equality is type-tagged, so StringID("1") != NumberID(1).
type ID struct {
	kind idKind
	str  string
	num  int32
}

// StringID returns a textual identifier.
func StringID(s string) ID {
	return ID{kind: idString, str: s}
}

// NumberID returns a numeric identifier.
func NumberID(n int32) ID {
	return ID{kind: idNumber, num: n}
}

// IsValid reports whether the ID is present.
func (id ID) IsValid() bool {
	return id.kind != idNone
}

// Str returns the textual value and whether the ID is textual.
func (id ID) Str() (string, bool) {
	return id.str, id.kind == idString
}

// Number returns the numeric value and whether the ID is numeric.
func (id ID) Number() (int32, bool) {
	return id.num, id.kind == idNumber
}

func (id ID) String() string {
	switch id.kind {
	case idString:
		return strconv.Quote(id.str)
	case idNumber:
		return strconv.FormatInt(int64(id.num), 10)
	default:
		return "<none>"
	}
}

// Encode writes the ID as a bare JSON string or number. It writes null for
// the zero ID; envelope encoders omit the key instead of calling Encode.
func (id ID) Encode(e *jx.Encoder) {
	switch id.kind {
	case idString:
		writeStr(e, id.str)
	case idNumber:
		e.Int32(id.num)
	default:
		e.Null()
	}
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	id.Encode(&e)
	return e.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	return id.Decode(jx.DecodeBytes(data))
}

// Decode reads an identifier. Anything other than a string or an integer
// that fits in 32 bits fails with ErrMalformedIdentifier.
func (id *ID) Decode(d *jx.Decoder) error {
	switch tt := d.Next(); tt {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return malformedID(err)
		}
		*id = StringID(s)
		return nil
	case jx.Number:
		raw, err := d.Raw()
		if err != nil {
			return malformedID(err)
		}
		// ParseInt rejects fractions and exponents, so 1.0 and 1e3 are not integers here.
		n, err := strconv.ParseInt(string(raw), 10, 32)
		if err != nil {
			return malformedID(errors.Errorf("number %s is not a 32-bit integer", raw))
		}
		*id = NumberID(int32(n))
		return nil
	default:
		return malformedID(errors.Errorf("unexpected %s", tt))
	}
}

func malformedID(err error) error {
	return &DecodeError{Kind: ErrMalformedIdentifier, Field: "id", Err: err}
}
