package server

import (
	"context"
	"fmt"

	"github.com/mnehpets/rpcenvelope/jsonrpc"
)

// RegisterDefaults installs the built-in method handlers on e.
func RegisterDefaults(e *jsonrpc.Endpoint) {
	jsonrpc.Handle(e, hello)
	jsonrpc.Handle(e, ping)
}

func hello(_ context.Context, m jsonrpc.Hello) (any, error) {
	return calledMessage(m), nil
}

func ping(context.Context, jsonrpc.Ping) (any, error) {
	return "pong", nil
}

func calledMessage(m jsonrpc.Method) string {
	return fmt.Sprintf("You requested method called '%s'", m.DisplayName())
}
