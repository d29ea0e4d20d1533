package security

import (
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestParseSnowflake(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"valid", "1148173313776680960", false},
		{"empty", "", true},
		{"non numeric", "abc123", true},
		{"negative", "-123", true},
		{"zero", "0", true},
		{"overflow", "99999999999999999999999999", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSnowflake(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseSnowflake(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestLimiterStore_BurstThenDeny(t *testing.T) {
	store := NewLimiterStore(rate.Limit(1), 3, time.Minute)

	for i := 0; i < 3; i++ {
		if !store.Allow("203.0.113.1") {
			t.Fatalf("expected request %d within burst to pass", i)
		}
	}
	if store.Allow("203.0.113.1") {
		t.Error("expected request beyond burst to be denied")
	}

	// a different client has its own bucket
	if !store.Allow("203.0.113.2") {
		t.Error("expected an independent bucket per client")
	}
}

func TestLimiterStore_EmptyIPBucketed(t *testing.T) {
	store := NewLimiterStore(rate.Limit(1), 1, time.Minute)

	if !store.Allow("") {
		t.Fatal("expected first empty-ip request to pass")
	}
	if store.Allow("  ") {
		t.Error("expected blank ips to share one bucket")
	}
}

func TestClientIPFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.7:52011"
	// spoofable headers are ignored
	req.Header.Set("X-Forwarded-For", "10.0.0.1")

	if got := ClientIPFromRequest(req); got != "203.0.113.7" {
		t.Errorf("expected remote addr host, got %q", got)
	}
}
