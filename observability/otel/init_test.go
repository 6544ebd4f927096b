package otel

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "rewardd"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := Init(context.Background(), Config{}); err == nil {
		t.Fatalf("expected service name error")
	}
}

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = abc ,broken, =x,tenant=rewards")
	want := map[string]string{"api-key": "abc", "tenant": "rewards"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("headers %v want %v", got, want)
	}
}

func TestConfigWithEnv(t *testing.T) {
	env := map[string]string{
		EnvEndpoint:   " collector:4318 ",
		EnvInsecure:   "false",
		EnvHeaders:    "tenant=ops,api-key=override",
		EnvSamplerArg: "0.25",
	}
	lookup := func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}
	base := Config{
		ServiceName: "rewardd",
		Endpoint:    "localhost:4318",
		Insecure:    true,
		Headers:     map[string]string{"api-key": "file"},
	}
	got := base.WithEnv(lookup)
	if got.Endpoint != "collector:4318" || got.Insecure || got.SampleRatio != 0.25 {
		t.Fatalf("unexpected config %+v", got)
	}
	want := map[string]string{"api-key": "override", "tenant": "ops"}
	if !reflect.DeepEqual(got.Headers, want) {
		t.Fatalf("headers %v want %v", got.Headers, want)
	}
	if base.Headers["api-key"] != "file" {
		t.Fatalf("WithEnv mutated the receiver headers")
	}

	env[EnvInsecure] = "maybe"
	env[EnvSamplerArg] = "lots"
	got = base.WithEnv(lookup)
	if !got.Insecure || got.SampleRatio != 0 {
		t.Fatalf("malformed overrides should be ignored: %+v", got)
	}
}

func TestSamplerSelection(t *testing.T) {
	for _, ratio := range []float64{0, -1, 1, 2} {
		if got := sampler(ratio).Description(); got != "AlwaysOnSampler" {
			t.Fatalf("ratio %v: sampler %s", ratio, got)
		}
	}
	if got := sampler(0.5).Description(); !strings.HasPrefix(got, "ParentBased") {
		t.Fatalf("ratio 0.5: sampler %s", got)
	}
}
