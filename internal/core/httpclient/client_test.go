package httpclient

import (
	"net/http"
	"testing"
	"time"
)

func TestNewOutbound_Timeout(t *testing.T) {
	if c := NewOutbound(0); c.Timeout != 30*time.Second {
		t.Fatalf("default timeout=%s", c.Timeout)
	}
	c := NewOutbound(5 * time.Second)
	if c.Timeout != 5*time.Second {
		t.Fatalf("timeout=%s", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok || tr.Proxy == nil {
		t.Fatalf("unexpected transport %#v", c.Transport)
	}
}
