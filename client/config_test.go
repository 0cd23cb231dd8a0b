package client

import (
	"testing"
	"time"
)

func TestDecodeConfigOverlaysOptionsOntoDefaults(t *testing.T) {
	tests := []struct {
		name string
		opts map[string]any
		want Config
	}{
		{
			name: "nil options yields the default config",
			opts: nil,
			want: DefaultConfig(),
		},
		{
			name: "weakly-typed string duration and bool overlay",
			opts: map[string]any{
				"dial_timeout":              "5s",
				"happy_eyeballs_sequential": "true",
				"user_agent":                "hyperdrivectl/1.0",
			},
			want: func() Config {
				cfg := DefaultConfig()
				cfg.DialTimeout = 5 * time.Second
				cfg.HappyEyeballsSequential = true
				cfg.UserAgent = "hyperdrivectl/1.0"
				return cfg
			}(),
		},
		{
			name: "nested pool options overlay",
			opts: map[string]any{
				"pool": map[string]any{
					"max_idle_per_host": 4,
				},
			},
			want: func() Config {
				cfg := DefaultConfig()
				cfg.Pool.MaxIdlePerHost = 4
				return cfg
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeConfig(tt.opts)
			if err != nil {
				t.Fatalf("DecodeConfig: %v", err)
			}
			if got != tt.want {
				t.Fatalf("DecodeConfig(%v) = %+v, want %+v", tt.opts, got, tt.want)
			}
		})
	}
}

func TestDecodeConfigRejectsInvalidOverlay(t *testing.T) {
	_, err := DecodeConfig(map[string]any{
		"pool": map[string]any{
			"max_idle_per_host": -1,
		},
	})
	if err == nil {
		t.Fatal("DecodeConfig with a negative max_idle_per_host should fail validation")
	}
}
