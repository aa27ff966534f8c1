// Package jsonrpc implements typed JSON-RPC 2.0 envelopes and an HTTP
// endpoint that dispatches them.
//
// This package follows the JSON-RPC 2.0 specification
// (https://www.jsonrpc.org/specification) for single requests. Batch arrays
// are rejected with InvalidRequest.
//
// # Codec
//
// Four pure functions map between bytes and envelopes:
//
//	req, err := jsonrpc.DecodeRequest(body)
//	b := jsonrpc.EncodeRequest(req)
//	resp, err := jsonrpc.DecodeResponse(body)
//	b = jsonrpc.EncodeResponse(resp)
//
// A request's method is a closed set of variants (Hello, Ping) with typed
// params, plus Unsupported for every other name. Unknown names never fail to
// decode; the dispatcher answers them with MethodNotFound. Params of a known
// method that do not match its shape fail with ErrInvalidParams.
//
// Input must be UTF-8 or it fails with ErrParse. Encoders replace invalid
// UTF-8 found in memory with U+FFFD.
//
// Identifiers are strings or 32-bit integers (ID). An absent identifier is
// omitted from the wire, never written as null.
//
// A response carries a Result, which is exactly one of a success value or an
// *Error, written as a "result" or an "error" key. When decoding an object
// that has both keys, the "result" wins.
//
// Decode failures are *DecodeError values; match their kind with errors.Is
// against ErrParse, ErrInvalidRequest, ErrMalformedIdentifier,
// ErrInvalidParams, ErrDuplicateField or ErrMissingField, and use CodeFor to
// choose the response code.
//
// # Error Codes
//
// NewError builds an *Error from an ErrorCode; code and message always come
// from a fixed table:
//
//	jsonrpc.NewError(jsonrpc.MethodNotFound, nil) // {"code":-32601,"message":"MethodNotFound"}
//
// # Serving
//
//	e := jsonrpc.NewEndpoint(jsonrpc.WithLogger(logger))
//	jsonrpc.Handle(e, func(ctx context.Context, m jsonrpc.Hello) (any, error) {
//	    return "hello " + m.Params.Hello, nil
//	})
//	mux.Handle("POST /json_rpc", endpoint.Handler(e.Endpoint, processors...))
//
// The endpoint requires POST and Content-Type application/json. Every
// request that gets that far is answered with HTTP 200 and
// "application/json; charset=utf-8", including JSON-RPC errors.
//
// All codec functions are safe for concurrent use. Decoded envelopes should
// be treated as immutable.
package jsonrpc
