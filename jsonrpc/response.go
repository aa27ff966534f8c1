package jsonrpc

import (
	"bytes"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

var nullValue = jx.Raw("null")

// Result is the outcome of a call: exactly one of a success value or an
// *Error. The zero Result is a success whose value is null.
type Result struct {
	value jx.Raw
	err   *Error
}

// Ok returns a successful result holding the string s.
func Ok(s string) Result {
	return Result{value: StringData(s)}
}

// OkRaw returns a successful result holding an already encoded JSON value.
// nil and null both yield the zero Result.
func OkRaw(v jx.Raw) Result {
	return Result{value: canonicalValue(v)}
}

// canonicalValue stores null as nil so that every null success compares
// equal to the zero Result.
func canonicalValue(v jx.Raw) jx.Raw {
	if v == nil || bytes.Equal(v, nullValue) {
		return nil
	}
	return cloneRaw(v)
}

// Fail returns a failed result. A nil err is replaced by InternalError.
func Fail(err *Error) Result {
	if err == nil {
		err = NewError(InternalError, nil)
	}
	return Result{err: err}
}

// Value returns the success value; ok is false for failures.
func (r Result) Value() (v jx.Raw, ok bool) {
	if r.err != nil {
		return nil, false
	}
	if r.value == nil {
		return nullValue, true
	}
	return r.value, true
}

// Err returns the error of a failed result, or nil.
func (r Result) Err() *Error {
	return r.err
}

// IsError reports whether the result is a failure.
func (r Result) IsError() bool {
	return r.err != nil
}

// Equal reports whether r and other hold the same outcome. Success values
// are compared as encoded bytes.
func (r Result) Equal(other Result) bool {
	if r.err != nil || other.err != nil {
		return r.err.Equal(other.err)
	}
	a, _ := r.Value()
	b, _ := other.Value()
	return bytes.Equal(a, b)
}

// encodeField writes exactly one field: "result" or "error".
func (r Result) encodeField(e *jx.Encoder) {
	if r.err != nil {
		e.FieldStart("error")
		r.err.Encode(e)
		return
	}
	v, _ := r.Value()
	e.FieldStart("result")
	writeRaw(e, v)
}

// Encode writes the result as a one-key object.
func (r Result) Encode(e *jx.Encoder) {
	e.ObjStart()
	r.encodeField(e)
	e.ObjEnd()
}

// resultScanner collects the "result" and "error" members of an object
// while the caller iterates its keys.
type resultScanner struct {
	value     jx.Raw
	err       *Error
	hasResult bool
	hasError  bool
}

// scan consumes the value for key when it is "result" or "error" and
// reports whether it did.
func (s *resultScanner) scan(d *jx.Decoder, key string) (bool, error) {
	switch key {
	case "result":
		if s.hasResult {
			return true, duplicateField("result")
		}
		s.hasResult = true
		raw, err := d.Raw()
		if err != nil {
			return true, err
		}
		s.value = canonicalValue(raw)
		return true, nil
	case "error":
		if s.hasError {
			return true, duplicateField("error")
		}
		s.hasError = true
		var e Error
		if err := e.Decode(d); err != nil {
			return true, err
		}
		s.err = &e
		return true, nil
	}
	return false, nil
}

// result resolves the scanned members. A captured "result" wins even when
// an "error" was present as well.
func (s *resultScanner) result() (Result, error) {
	switch {
	case s.hasResult:
		return Result{value: s.value}, nil
	case s.hasError:
		return Result{err: s.err}, nil
	default:
		return Result{}, missingField("result or error")
	}
}

// Decode reads a result from an object holding "result" and/or "error".
// Other keys are skipped.
func (r *Result) Decode(d *jx.Decoder) error {
	if err := expectObject(d); err != nil {
		return err
	}
	var s resultScanner
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		ok, err := s.scan(d, string(key))
		if ok || err != nil {
			return err
		}
		return d.Skip()
	})
	if err != nil {
		return asDecodeError(err, "")
	}
	res, err := s.result()
	if err != nil {
		return err
	}
	*r = res
	return nil
}

// Response is a response envelope. On the wire the result sits next to
// "jsonrpc" and "id" as either a "result" or an "error" key.
type Response struct {
	JSONRPC string
	Result  Result
	// ID is the zero ID when the response carries none.
	ID ID
}

// Equal reports whether r and other are the same envelope.
func (r Response) Equal(other Response) bool {
	return r.JSONRPC == other.JSONRPC && r.ID == other.ID && r.Result.Equal(other.Result)
}

// NewResponse returns a version 2.0 response.
func NewResponse(id ID, r Result) Response {
	return Response{JSONRPC: Version, Result: r, ID: id}
}

// ErrorResponse is shorthand for NewResponse(id, Fail(NewError(code, data))).
func ErrorResponse(id ID, code ErrorCode, data jx.Raw) Response {
	return NewResponse(id, Fail(NewError(code, data)))
}

// Encode writes "jsonrpc" first, then "result" or "error", then "id" when present.
func (r Response) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("jsonrpc")
	writeStr(e, r.JSONRPC)
	r.Result.encodeField(e)
	if r.ID.IsValid() {
		e.FieldStart("id")
		r.ID.Encode(e)
	}
	e.ObjEnd()
}

// EncodeResponse returns the wire form of resp. It cannot fail.
func EncodeResponse(resp Response) []byte {
	var e jx.Encoder
	resp.Encode(&e)
	return e.Bytes()
}

// DecodeResponse parses a response envelope.
func DecodeResponse(data []byte, opts ...DecodeOption) (Response, error) {
	cfg := newDecodeConfig(opts)
	if err := checkSyntax(data); err != nil {
		return Response{}, err
	}
	d := jx.DecodeBytes(data)
	if err := expectObject(d); err != nil {
		return Response{}, err
	}

	var (
		resp              Response
		s                 resultScanner
		hasVersion, hasID bool
	)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		k := string(key)
		switch k {
		case "jsonrpc":
			if hasVersion {
				return duplicateField("jsonrpc")
			}
			hasVersion = true
			v, err := decodeVersion(d, cfg)
			if err != nil {
				return err
			}
			resp.JSONRPC = v
			return nil
		case "id":
			if hasID {
				return duplicateField("id")
			}
			hasID = true
			return resp.ID.Decode(d)
		}
		ok, err := s.scan(d, k)
		if ok || err != nil {
			return err
		}
		return d.Skip()
	})
	if err != nil {
		return Response{}, asDecodeError(err, "")
	}
	if !hasVersion {
		return Response{}, missingField("jsonrpc")
	}
	res, err := s.result()
	if err != nil {
		return Response{}, err
	}
	resp.Result = res
	return resp, nil
}

// MarshalJSON implements json.Marshaler.
func (r Response) MarshalJSON() ([]byte, error) {
	return EncodeResponse(r), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Response) UnmarshalJSON(data []byte) error {
	resp, err := DecodeResponse(data)
	if err != nil {
		return err
	}
	*r = resp
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e *Error) MarshalJSON() ([]byte, error) {
	if e == nil {
		return nil, errors.New("jsonrpc: marshal nil *Error")
	}
	var enc jx.Encoder
	e.Encode(&enc)
	return enc.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Error) UnmarshalJSON(data []byte) error {
	if err := checkSyntax(data); err != nil {
		return err
	}
	return e.Decode(jx.DecodeBytes(data))
}
