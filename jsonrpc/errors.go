package jsonrpc

import (
	"bytes"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// ErrorCode is one of the reserved JSON-RPC and LSP error codes. The set is
// closed: every member maps to exactly one (code, message) pair.
type ErrorCode uint8

const (
	UnknownErrorCode ErrorCode = iota
	ServerNotInitialized
	ParseError
	InvalidRequest
	MethodNotFound
	InvalidParams
	InternalError
	RequestCancelled
	ContentModified
	ServerCancelled
	RequestFailed
)

// errorTable is indexed by ErrorCode.
var errorTable = [...]struct {
	code    int32
	message string
}{
	UnknownErrorCode:     {-32001, "UnknownErrorCode"},
	ServerNotInitialized: {-32002, "ServerNotInitialized"},
	ParseError:           {-32700, "ParseError"},
	InvalidRequest:       {-32600, "InvalidRequest"},
	MethodNotFound:       {-32601, "MethodNotFound"},
	InvalidParams:        {-32602, "InvalidParams"},
	InternalError:        {-32603, "InternalError"},
	RequestCancelled:     {-32800, "RequestCancelled"},
	ContentModified:      {-32801, "ContentModified"},
	ServerCancelled:      {-32802, "ServerCancelled"},
	RequestFailed:        {-32803, "RequestFailed"},
}

// ErrorCodes lists every member in declaration order.
func ErrorCodes() []ErrorCode {
	codes := make([]ErrorCode, len(errorTable))
	for i := range errorTable {
		codes[i] = ErrorCode(i)
	}
	return codes
}

// Out-of-range values (only reachable through a conversion) read as UnknownErrorCode.
func (c ErrorCode) entry() (int32, string) {
	if int(c) >= len(errorTable) {
		c = UnknownErrorCode
	}
	e := errorTable[c]
	return e.code, e.message
}

// Code returns the numeric wire code.
func (c ErrorCode) Code() int32 {
	code, _ := c.entry()
	return code
}

// Message returns the canonical message text.
func (c ErrorCode) Message() string {
	_, msg := c.entry()
	return msg
}

func (c ErrorCode) String() string {
	return c.Message()
}

// LookupCode finds the member whose numeric code is code.
func LookupCode(code int32) (ErrorCode, bool) {
	for i, e := range errorTable {
		if e.code == code {
			return ErrorCode(i), true
		}
	}
	return 0, false
}

// Error is a JSON-RPC error object.
//
// Errors built locally come from NewError and always carry a (code, message)
// pair from the table. Errors decoded from a peer keep whatever integer code
// and string message the peer sent.
type Error struct {
	Code    int32
	Message string
	// Data is omitted from the wire when nil. jx.Raw("null") is a present null.
	Data jx.Raw
}

// NewError builds an error from a table member. It cannot fail.
func NewError(code ErrorCode, data jx.Raw) *Error {
	c, msg := code.entry()
	return &Error{Code: c, Message: msg, Data: data}
}

// StringData encodes s as a JSON string for use as Error.Data.
func StringData(s string) jx.Raw {
	var e jx.Encoder
	writeStr(&e, s)
	return jx.Raw(e.Bytes())
}

func (e *Error) Error() string {
	if e == nil {
		return "jsonrpc: error: <nil>"
	}
	msg := "jsonrpc: " + e.Message + " (" + strconv.FormatInt(int64(e.Code), 10) + ")"
	if e.Data != nil {
		msg += ": " + string(e.Data)
	}
	return msg
}

// Equal reports whether e and other carry the same code, message and data.
// An absent Data differs from a present null.
func (e *Error) Equal(other *Error) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.Code == other.Code &&
		e.Message == other.Message &&
		(e.Data == nil) == (other.Data == nil) &&
		bytes.Equal(e.Data, other.Data)
}

// Encode writes the error object: code, message and, if present, data.
func (e *Error) Encode(enc *jx.Encoder) {
	enc.ObjStart()
	enc.FieldStart("code")
	enc.Int32(e.Code)
	enc.FieldStart("message")
	writeStr(enc, e.Message)
	if e.Data != nil {
		enc.FieldStart("data")
		writeRaw(enc, e.Data)
	}
	enc.ObjEnd()
}

// Decode reads an error object from an untrusted peer. code must be an
// integer and message a string; both are required.
func (e *Error) Decode(d *jx.Decoder) error {
	if tt := d.Next(); tt != jx.Object {
		return &DecodeError{Kind: ErrInvalidRequest, Field: "error", Err: errors.Errorf("expected object, got %s", tt)}
	}
	var (
		out                      Error
		hasCode, hasMsg, hasData bool
	)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "code":
			if hasCode {
				return duplicateField("code")
			}
			hasCode = true
			if d.Next() != jx.Number {
				return &DecodeError{Kind: ErrInvalidRequest, Field: "code", Err: errors.New("code must be an integer")}
			}
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			n, err := strconv.ParseInt(string(raw), 10, 32)
			if err != nil {
				return &DecodeError{Kind: ErrInvalidRequest, Field: "code", Err: errors.Wrap(err, "code must be an integer")}
			}
			out.Code = int32(n)
		case "message":
			if hasMsg {
				return duplicateField("message")
			}
			hasMsg = true
			if d.Next() != jx.String {
				return &DecodeError{Kind: ErrInvalidRequest, Field: "message", Err: errors.New("message must be a string")}
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			out.Message = s
		case "data":
			if hasData {
				return duplicateField("data")
			}
			hasData = true
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			out.Data = cloneRaw(raw)
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return asDecodeError(err, "error")
	}
	if !hasCode {
		return missingField("code")
	}
	if !hasMsg {
		return missingField("message")
	}
	*e = out
	return nil
}

// Decode failure kinds. Match them with errors.Is.
var (
	ErrParse               = errors.New("parse error")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrMalformedIdentifier = errors.New("malformed identifier")
	ErrInvalidParams       = errors.New("invalid params")
	ErrDuplicateField      = errors.New("duplicate field")
	ErrMissingField        = errors.New("missing field")
)

// DecodeError is returned by every decode entry point.
type DecodeError struct {
	// Kind is one of the Err* sentinels above.
	Kind  error
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	msg := "jsonrpc: " + e.Kind.Error()
	if e.Field != "" {
		msg += " " + strconv.Quote(e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Is(target error) bool {
	return target == e.Kind
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func duplicateField(name string) error {
	return &DecodeError{Kind: ErrDuplicateField, Field: name}
}

func missingField(name string) error {
	return &DecodeError{Kind: ErrMissingField, Field: name}
}

// asDecodeError keeps typed failures as they are and files anything else
// (syntax errors surfaced by jx mid-object) under ErrInvalidRequest.
func asDecodeError(err error, field string) error {
	var de *DecodeError
	if errors.As(err, &de) {
		return de
	}
	return &DecodeError{Kind: ErrInvalidRequest, Field: field, Err: err}
}

// CodeFor maps a failure to the error code a response should carry.
func CodeFor(err error) ErrorCode {
	var rpcErr *Error
	switch {
	case err == nil:
		return InternalError
	case errors.As(err, &rpcErr):
		if c, ok := LookupCode(rpcErr.Code); ok {
			return c
		}
		return InternalError
	case errors.Is(err, ErrParse):
		return ParseError
	case errors.Is(err, ErrInvalidParams):
		return InvalidParams
	case errors.Is(err, ErrMalformedIdentifier),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrDuplicateField),
		errors.Is(err, ErrMissingField):
		return InvalidRequest
	default:
		return InternalError
	}
}

func cloneRaw(raw jx.Raw) jx.Raw {
	if raw == nil {
		return nil
	}
	return append(jx.Raw(nil), raw...)
}
