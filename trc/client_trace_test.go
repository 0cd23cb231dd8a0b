package trc

import (
	"context"
	"testing"
)

func TestWithClientTraceComposesHooks(t *testing.T) {
	var calls []string

	ctx := WithClientTrace(context.Background(), &ClientTrace{
		GetConn: func(hostPort string) { calls = append(calls, "outer:"+hostPort) },
	})
	ctx = WithClientTrace(ctx, &ClientTrace{
		GetConn: func(hostPort string) { calls = append(calls, "inner:"+hostPort) },
	})

	trace := ContextClientTrace(ctx)
	if trace == nil {
		t.Fatal("ContextClientTrace returned nil")
	}
	trace.GetConn("example.com:443")

	if len(calls) != 2 || calls[0] != "inner:example.com:443" || calls[1] != "outer:example.com:443" {
		t.Fatalf("calls = %v, want [inner:... outer:...] (most-recently-registered runs first)", calls)
	}
}

func TestContextClientTraceAbsent(t *testing.T) {
	if trace := ContextClientTrace(context.Background()); trace != nil {
		t.Fatalf("ContextClientTrace on a bare context = %v, want nil", trace)
	}
}
