package pool

import (
	"net/url"
	"testing"
)

func TestKeyFromURLDefaultPorts(t *testing.T) {
	tests := []struct {
		raw  string
		want Key
	}{
		{"http://example.com/", Key{Scheme: "http", Host: "example.com", Port: "80"}},
		{"https://example.com/", Key{Scheme: "https", Host: "example.com", Port: "443"}},
		{"http://example.com:8080/", Key{Scheme: "http", Host: "example.com", Port: "8080"}},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		if err != nil {
			t.Fatalf("url.Parse(%q): %v", tt.raw, err)
		}
		got, err := KeyFromURL(u)
		if err != nil {
			t.Fatalf("KeyFromURL(%q): %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("KeyFromURL(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

func TestKeyFromURLIDNA(t *testing.T) {
	u, err := url.Parse("http://xn--n3h.example/")
	if err != nil {
		t.Fatal(err)
	}
	got, err := KeyFromURL(u)
	if err != nil {
		t.Fatalf("KeyFromURL: %v", err)
	}
	if got.Host != "xn--n3h.example" {
		t.Errorf("Host = %q, want ascii punycode form preserved", got.Host)
	}
}
