package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
)

func TestJSONResponse_WritesBody(t *testing.T) {
	ctx := &fasthttp.RequestCtx{}

	jsonResponse(ctx, map[string]int{"total": 3})

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))
	assert.JSONEq(t, `{"total":3}`, string(ctx.Response.Body()))
}

func TestJSONResponse_EncodeFailureIs500(t *testing.T) {
	// Channels are not encodable; the handler must answer with a 500
	// instead of an empty 200 body.
	ctx := &fasthttp.RequestCtx{}

	jsonResponse(ctx, map[string]any{"bad": make(chan int)})

	assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
	assert.NotContains(t, string(ctx.Response.Header.ContentType()), "application/json")
}
