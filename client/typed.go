package client

import (
	"context"
	"fmt"

	"github.com/mivmi/snakegram/tl"
)

// InvokeAs submits query the same way Invoke does, but type-asserts the
// reply to TResp before returning it — the type parameter replaces the
// caller's own cast, mirroring how the request/response pair is pinned
// together in a generic RPC call rather than threaded through an untyped
// envelope.
func InvokeAs[TResp tl.Object](ctx context.Context, c *Client, query tl.Object) (TResp, error) {
	var zero TResp
	obj, err := c.Invoke(ctx, query)
	if err != nil {
		return zero, err
	}
	resp, ok := obj.(TResp)
	if !ok {
		return zero, fmt.Errorf("client: unexpected reply type %T, want %T", obj, zero)
	}
	return resp, nil
}
