package main

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/mnehpets/rpcenvelope/endpoint"
	"github.com/mnehpets/rpcenvelope/jsonrpc"
	"github.com/mnehpets/rpcenvelope/middleware"
)

func main() {
	e := jsonrpc.NewEndpoint()
	jsonrpc.Handle(e, func(ctx context.Context, m jsonrpc.Hello) (any, error) {
		if strings.TrimSpace(m.Params.Hello) == "" {
			return nil, jsonrpc.NewError(jsonrpc.InvalidParams, jsonrpc.StringData("hello must not be blank"))
		}
		return "Hello, " + m.Params.Hello + "!", nil
	})
	jsonrpc.Handle(e, func(ctx context.Context, _ jsonrpc.Ping) (any, error) {
		return "pong", nil
	})

	http.Handle("/rpc", endpoint.Handler(e.Endpoint,
		middleware.NewAPISecurityHeadersProcessor(),
		middleware.BodyLimitProcessor{Max: 1 << 20},
	))

	// curl -d '{"jsonrpc":"2.0","method":"hello","params":["world"],"id":1}' \
	//   -H 'Content-Type: application/json' localhost:8080/rpc
	log.Println("Starting server on :8080")
	log.Fatal(http.ListenAndServe(":8080", nil))
}
