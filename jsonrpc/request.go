package jsonrpc

import (
	"io"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Version is the protocol version this package speaks.
const Version = "2.0"

// Request is a decoded request envelope. On the wire the method tag and its
// params sit next to "jsonrpc" and "id" at the top level.
type Request struct {
	JSONRPC string
	Method  Method
	// ID is the zero ID when the request carried none.
	ID ID
}

// NewRequest returns a version 2.0 request.
func NewRequest(m Method, id ID) Request {
	return Request{JSONRPC: Version, Method: m, ID: id}
}

type decodeConfig struct {
	strictVersion bool
}

// DecodeOption tunes DecodeRequest and DecodeResponse.
type DecodeOption func(*decodeConfig)

// WithStrictVersion rejects envelopes whose "jsonrpc" member is not "2.0".
// Without it only the presence of a string is required.
func WithStrictVersion() DecodeOption {
	return func(c *decodeConfig) { c.strictVersion = true }
}

func newDecodeConfig(opts []DecodeOption) decodeConfig {
	var cfg decodeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// checkSyntax reports ErrParse for anything that is not exactly one JSON
// value in UTF-8.
func checkSyntax(data []byte) error {
	if !utf8.Valid(data) {
		return &DecodeError{Kind: ErrParse, Err: errors.New("invalid UTF-8")}
	}
	d := jx.DecodeBytes(data)
	if err := d.Skip(); err != nil {
		return &DecodeError{Kind: ErrParse, Err: err}
	}
	if err := d.Skip(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected trailing data")
		}
		return &DecodeError{Kind: ErrParse, Err: err}
	}
	return nil
}

func expectObject(d *jx.Decoder) error {
	switch tt := d.Next(); tt {
	case jx.Object:
		return nil
	case jx.Array:
		return &DecodeError{Kind: ErrInvalidRequest, Err: errors.New("batch arrays are not supported")}
	default:
		return &DecodeError{Kind: ErrInvalidRequest, Err: errors.Errorf("expected object, got %s", tt)}
	}
}

func decodeVersion(d *jx.Decoder, cfg decodeConfig) (string, error) {
	if d.Next() != jx.String {
		return "", &DecodeError{Kind: ErrInvalidRequest, Field: "jsonrpc", Err: errors.New("must be a string")}
	}
	v, err := d.Str()
	if err != nil {
		return "", err
	}
	if cfg.strictVersion && v != Version {
		return "", &DecodeError{Kind: ErrInvalidRequest, Field: "jsonrpc", Err: errors.Errorf("unsupported version %q", v)}
	}
	return v, nil
}

// DecodeRequest parses a request envelope.
//
// Unknown method names decode to Unsupported and never fail, so that the
// caller can still answer with MethodNotFound. A known method whose params
// do not match fails with ErrInvalidParams.
func DecodeRequest(data []byte, opts ...DecodeOption) (Request, error) {
	cfg := newDecodeConfig(opts)
	if err := checkSyntax(data); err != nil {
		return Request{}, err
	}
	d := jx.DecodeBytes(data)
	if err := expectObject(d); err != nil {
		return Request{}, err
	}

	var (
		req                                     Request
		name                                    string
		params                                  jx.Raw
		hasVersion, hasMethod, hasParams, hasID bool
	)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "jsonrpc":
			if hasVersion {
				return duplicateField("jsonrpc")
			}
			hasVersion = true
			v, err := decodeVersion(d, cfg)
			if err != nil {
				return err
			}
			req.JSONRPC = v
		case "method":
			if hasMethod {
				return duplicateField("method")
			}
			hasMethod = true
			if d.Next() != jx.String {
				return &DecodeError{Kind: ErrInvalidRequest, Field: "method", Err: errors.New("must be a string")}
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			name = s
		case "params":
			if hasParams {
				return duplicateField("params")
			}
			hasParams = true
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			params = raw
		case "id":
			if hasID {
				return duplicateField("id")
			}
			hasID = true
			return req.ID.Decode(d)
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return Request{}, asDecodeError(err, "")
	}
	if !hasVersion {
		return Request{}, missingField("jsonrpc")
	}
	if !hasMethod {
		return Request{}, missingField("method")
	}
	m, err := decodeMethod(name, params)
	if err != nil {
		return Request{}, err
	}
	req.Method = m
	return req, nil
}

// Encode writes the envelope with keys in the order jsonrpc, method,
// params, id. params and id are omitted when absent.
func (r Request) Encode(e *jx.Encoder) {
	m := r.Method
	if m == nil {
		m = Unsupported{}
	}
	e.ObjStart()
	e.FieldStart("jsonrpc")
	writeStr(e, r.JSONRPC)
	e.FieldStart("method")
	writeStr(e, m.MethodName())
	m.encodeParams(e)
	if r.ID.IsValid() {
		e.FieldStart("id")
		r.ID.Encode(e)
	}
	e.ObjEnd()
}

// EncodeRequest returns the wire form of req. It cannot fail.
func EncodeRequest(req Request) []byte {
	var e jx.Encoder
	req.Encode(&e)
	return e.Bytes()
}

// MarshalJSON implements json.Marshaler.
func (r Request) MarshalJSON() ([]byte, error) {
	return EncodeRequest(r), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Request) UnmarshalJSON(data []byte) error {
	req, err := DecodeRequest(data)
	if err != nil {
		return err
	}
	*r = req
	return nil
}
