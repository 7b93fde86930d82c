package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseSplitsPairs(t *testing.T) {
	jar := Parse([]string{
		"Host", "localhost",
		"Cookie", "ASP.NET_sessionID=abc123; theme=dark ;flag",
		"Content-Type", "text/xml",
	})

	if got, _ := jar.Get("ASP.NET_sessionID"); got != "abc123" {
		t.Fatalf("expected session cookie abc123, got %q", got)
	}
	if got, _ := jar.Get("theme"); got != "dark" {
		t.Fatalf("expected theme=dark, got %q", got)
	}
	if got, ok := jar.Get("flag"); !ok || got != "" {
		t.Fatalf("expected flag present with empty value, got %q ok=%v", got, ok)
	}
}

func TestParseSplitsOnFirstEquals(t *testing.T) {
	jar := Parse([]string{"Cookie", "token=a=b==c"})
	if got := jar["token"]; got != "a=b==c" {
		t.Fatalf("expected value to keep trailing '=', got %q", got)
	}
}

func TestParseMissingOrEmptyHeader(t *testing.T) {
	cases := [][]string{
		nil,
		{"Host", "localhost"},
		{"Cookie", ""},
		{"Cookie"},
		{"cookie", "a=b"},
	}
	for _, raw := range cases {
		jar := Parse(raw)
		if jar == nil {
			t.Fatalf("expected non-nil jar for %v", raw)
		}
		if len(jar) != 0 {
			t.Fatalf("expected empty jar for %v, got %v", raw, jar)
		}
	}
}

func TestParseMergesRepeatedHeaders(t *testing.T) {
	jar := Parse([]string{
		"Cookie", "a=1; b=2",
		"Cookie", "b=3",
	})
	if jar["a"] != "1" || jar["b"] != "3" {
		t.Fatalf("unexpected merge result: %v", jar)
	}
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/RPC2", nil)
	req.Header.Set("Cookie", "sid=xyz")
	jar := FromRequest(req)
	if jar["sid"] != "xyz" {
		t.Fatalf("expected sid=xyz, got %v", jar)
	}

	if len(FromRequest(nil)) != 0 {
		t.Fatal("expected empty jar for nil request")
	}
}

func TestRawHeadersDeterministic(t *testing.T) {
	h := http.Header{}
	h.Add("X-B", "2")
	h.Add("X-A", "1")
	h.Add("X-A", "1b")

	raw := RawHeaders(h)
	want := []string{"X-A", "1", "X-A", "1b", "X-B", "2"}
	if len(raw) != len(want) {
		t.Fatalf("expected %v, got %v", want, raw)
	}
	for i := range want {
		if raw[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, raw)
		}
	}
}
