package jsonrpc

import (
	"sort"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Method is the method tag of a request together with its typed params.
//
// The set of variants is closed: Hello, Ping, and Unsupported for any name
// that is not known. The wire tag comes from the variant type, so a
// variant cannot carry a mismatched tag.
type Method interface {
	// MethodName is the value of the "method" key on the wire.
	MethodName() string
	// DisplayName is a stable label for logs. It is not part of the wire format.
	DisplayName() string

	encodeParams(e *jx.Encoder)
}

// HelloParams accepts {"hello": "..."} or the positional form ["..."].
type HelloParams struct {
	Hello string
}

type Hello struct {
	Params HelloParams
}

func (Hello) MethodName() string  { return "hello" }
func (Hello) DisplayName() string { return "hello" }

func (m Hello) encodeParams(e *jx.Encoder) {
	e.FieldStart("params")
	e.ObjStart()
	e.FieldStart("hello")
	writeStr(e, m.Params.Hello)
	e.ObjEnd()
}

// Ping takes no params.
type Ping struct{}

func (Ping) MethodName() string  { return "ping" }
func (Ping) DisplayName() string { return "ping" }

func (Ping) encodeParams(*jx.Encoder) {}

// ErrKnownMethod is returned by NewUnsupported for a name that has a typed
// variant.
var ErrKnownMethod = errors.New("jsonrpc: method name is known")

// Unsupported is decoded for every method name that is not known. Params
// are kept verbatim and never validated.
//
// Build one with NewUnsupported; it never carries a known name.
type Unsupported struct {
	name   string
	params jx.Raw
}

// NewUnsupported returns the catch-all variant for name. params may be nil
// when the key is absent.
func NewUnsupported(name string, params jx.Raw) (Unsupported, error) {
	if IsKnownMethod(name) {
		return Unsupported{}, errors.Wrapf(ErrKnownMethod, "%q", name)
	}
	return Unsupported{name: name, params: cloneRaw(params)}, nil
}

func (m Unsupported) MethodName() string { return m.name }
func (Unsupported) DisplayName() string  { return "not supported" }

// Params returns the raw params, or nil when the request had none.
func (m Unsupported) Params() jx.Raw { return m.params }

func (m Unsupported) encodeParams(e *jx.Encoder) {
	if m.params != nil {
		e.FieldStart("params")
		writeRaw(e, m.params)
	}
}

// paramsDecoder decodes the raw "params" value of a known method. params is
// nil when the key was absent.
type paramsDecoder func(params jx.Raw) (Method, error)

var knownMethods = map[string]paramsDecoder{
	Hello{}.MethodName(): decodeHello,
	Ping{}.MethodName():  decodePing,
}

// KnownMethods returns the wire names with typed params, sorted.
func KnownMethods() []string {
	names := make([]string, 0, len(knownMethods))
	for name := range knownMethods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsKnownMethod reports whether name decodes to a typed variant.
func IsKnownMethod(name string) bool {
	_, ok := knownMethods[name]
	return ok
}

func decodeMethod(name string, params jx.Raw) (Method, error) {
	dec, ok := knownMethods[name]
	if !ok {
		return Unsupported{name: name, params: cloneRaw(params)}, nil
	}
	return dec(params)
}

func invalidParams(err error) error {
	return &DecodeError{Kind: ErrInvalidParams, Field: "params", Err: err}
}

func decodeHello(params jx.Raw) (Method, error) {
	if params == nil {
		return nil, invalidParams(errors.New("hello requires params"))
	}
	var (
		p     HelloParams
		found bool
	)
	d := jx.DecodeBytes(params)
	switch tt := d.Next(); tt {
	case jx.Object:
		err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			if string(key) != "hello" {
				return d.Skip()
			}
			if found {
				return errors.New(`duplicate "hello"`)
			}
			found = true
			if d.Next() != jx.String {
				return errors.New(`"hello" must be a string`)
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			p.Hello = s
			return nil
		})
		if err != nil {
			return nil, invalidParams(err)
		}
	case jx.Array:
		n := 0
		err := d.Arr(func(d *jx.Decoder) error {
			n++
			if n > 1 {
				return errors.New("too many positional params")
			}
			if d.Next() != jx.String {
				return errors.New("positional param must be a string")
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			p.Hello = s
			found = true
			return nil
		})
		if err != nil {
			return nil, invalidParams(err)
		}
	default:
		return nil, invalidParams(errors.Errorf("expected object or array, got %s", tt))
	}
	if !found {
		return nil, invalidParams(errors.New(`missing "hello"`))
	}
	return Hello{Params: p}, nil
}

func decodePing(params jx.Raw) (Method, error) {
	if params == nil {
		return Ping{}, nil
	}
	d := jx.DecodeBytes(params)
	switch tt := d.Next(); tt {
	case jx.Null:
		return Ping{}, nil
	case jx.Array:
		n := 0
		if err := d.Arr(func(d *jx.Decoder) error { n++; return d.Skip() }); err != nil {
			return nil, invalidParams(err)
		}
		if n != 0 {
			return nil, invalidParams(errors.New("ping takes no params"))
		}
	case jx.Object:
		n := 0
		if err := d.ObjBytes(func(d *jx.Decoder, _ []byte) error { n++; return d.Skip() }); err != nil {
			return nil, invalidParams(err)
		}
		if n != 0 {
			return nil, invalidParams(errors.New("ping takes no params"))
		}
	default:
		return nil, invalidParams(errors.Errorf("unexpected %s", tt))
	}
	return Ping{}, nil
}
