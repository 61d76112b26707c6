package request

import "testing"

func TestParseAbsoluteFormWithPath(t *testing.T) {
	buf := []byte("GET http://example.com/foo/bar HTTP/1.1\r\nHost: example.com\r\n\r\n")
	p, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if string(p.Method) != "GET" {
		t.Errorf("Method = %q, want GET", p.Method)
	}
	if string(p.Host) != "example.com" {
		t.Errorf("Host = %q, want example.com", p.Host)
	}
	if p.HasPort() {
		t.Errorf("HasPort() = true, want false")
	}
	if string(p.Path) != "/foo/bar" {
		t.Errorf("Path = %q, want /foo/bar", p.Path)
	}
	if string(p.Version) != "HTTP/1.1" {
		t.Errorf("Version = %q, want HTTP/1.1", p.Version)
	}
}

func TestParseAbsoluteFormWithPort(t *testing.T) {
	buf := []byte("GET http://example.com:8080/ HTTP/1.1\r\nHost: example.com:8080\r\n\r\n")
	p, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !p.HasPort() {
		t.Fatalf("HasPort() = false, want true")
	}
	if string(p.Port) != "8080" {
		t.Errorf("Port = %q, want 8080", p.Port)
	}
}

func TestParseAbsoluteFormNoPath(t *testing.T) {
	buf := []byte("GET http://example.com HTTP/1.1\r\nHost: example.com\r\n\r\n")
	p, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if string(p.Path) != "/" {
		t.Errorf("Path = %q, want /", p.Path)
	}
}

func TestParseDuplicateHeadersCollapse(t *testing.T) {
	buf := []byte("GET http://example.com/ HTTP/1.1\r\nX-Foo: one\r\nX-Foo: two\r\n\r\n")
	p, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := p.Headers.Len(); got != 1 {
		t.Fatalf("Headers.Len() = %d, want 1", got)
	}
	v, ok := p.Headers.Get("X-Foo")
	if !ok || v != "two" {
		t.Fatalf("Headers.Get(X-Foo) = %q, %v; want two, true (last write wins)", v, ok)
	}
}

func TestParseMalformedRequestLine(t *testing.T) {
	tests := []struct {
		name string
		buf  string
	}{
		{"missing version", "GET /foo\r\nHost: example.com\r\n\r\n"},
		{"no CRLF", "GET / HTTP/1.1"},
		{"too short", "GE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.buf)); err == nil {
				t.Fatalf("Parse(%q) expected error, got nil", tt.buf)
			}
		})
	}
}

func TestParseHeaderLineWithoutColonDiscarded(t *testing.T) {
	buf := []byte("GET http://example.com/ HTTP/1.1\r\nmalformed-line-no-colon\r\nHost: example.com\r\n\r\n")
	p, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := p.Headers.Len(); got != 1 {
		t.Fatalf("Headers.Len() = %d, want 1", got)
	}
}

func TestReserializeRoundTrip(t *testing.T) {
	buf := []byte("GET http://example.com/foo HTTP/1.1\r\nHost: example.com\r\nAccept: */*\r\nConnection: keep-alive\r\n\r\n")
	p, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	out := p.Reserialize()
	want := "GET /foo HTTP/1.1\r\nHost: example.com\r\nAccept: */*\r\n\r\n"
	if out != want {
		t.Fatalf("Reserialize() = %q, want %q", out, want)
	}

	// parse -> reserialize -> parse must be idempotent on the second pass
	p2, err := Parse([]byte(out))
	if err != nil {
		t.Fatalf("second Parse() error = %v", err)
	}
	if p2.Reserialize() != out {
		t.Fatalf("Reserialize() not idempotent: %q != %q", p2.Reserialize(), out)
	}
}

func TestHeadLengthMatchesReserialize(t *testing.T) {
	buf := []byte("GET http://example.com/foo HTTP/1.1\r\nHost: example.com\r\nAccept: */*\r\n\r\n")
	p, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got, want := p.HeadLength(), len(p.Reserialize()); got != want {
		t.Fatalf("HeadLength() = %d, want %d (actual Reserialize length)", got, want)
	}
}

func TestParseURIWithoutSchemePrefix(t *testing.T) {
	buf := []byte("GET example.com/foo HTTP/1.1\r\nHost: example.com\r\n\r\n")
	p, err := Parse(buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if string(p.Host) != "example.com" || string(p.Path) != "/foo" {
		t.Fatalf("Host/Path = %q/%q, want example.com//foo", p.Host, p.Path)
	}
}
