// Package request parses a client's absolute-form HTTP/1.x request head
// into a ParsedRequest and re-serializes it in origin-form for the
// upstream server. This is the only subsystem that touches untrusted
// structured input; its correctness and memory discipline dominate the
// security posture of the proxy (spec §1).
package request

import (
	"bytes"
	"strings"

	"github.com/kestrelproxy/kestrel/pkg/header"
	"github.com/kestrelproxy/kestrel/pkg/proxyerr"
)

const minHeadLen = 4

// Parsed holds the decomposed fields of one request head. Every []byte
// field is a slice borrowed from the caller's backing buffer (except a
// defaulted Path of "/"), so the backing buffer must outlive the Parsed
// value (spec §9, "Ownership instead of ad-hoc duplication"). Header
// names and values are copied into Headers as strings. A Parsed is built
// by Parse, consumed once by Reserialize, and never shared across
// workers.
type Parsed struct {
	Method  []byte
	Host    []byte
	Port    []byte // nil/empty means "absent": default for scheme
	Path    []byte
	Version []byte
	Headers *header.Table
}

// HasPort reports whether the request URI carried an explicit port.
func (p *Parsed) HasPort() bool {
	return len(p.Port) > 0
}

// Parse decomposes buf, which must contain at least one complete request
// head terminated by "\r\n\r\n", into a Parsed. buf is retained by
// reference: every []byte field of the result aliases it, except a
// defaulted Path.
//
// Parse does not validate the method token against a list, does not
// validate the version, and does not reject unknown schemes — these are
// upstream problems (spec §4.B).
func Parse(buf []byte) (*Parsed, error) {
	if len(buf) < minHeadLen {
		return nil, proxyerr.NewProtocolError("request head too short", nil)
	}

	lineEnd := bytes.Index(buf, []byte("\r\n"))
	if lineEnd < 0 {
		return nil, proxyerr.NewProtocolError("no CRLF terminating request line", nil)
	}
	requestLine := buf[:lineEnd]

	fields := splitFields(requestLine)
	if len(fields) != 3 {
		return nil, proxyerr.NewProtocolError("request line must have exactly three fields", nil)
	}

	p := &Parsed{
		Method:  fields[0],
		Version: fields[2],
		Headers: header.New(),
	}
	p.Host, p.Port, p.Path = parseRequestURI(fields[1])

	parseHeaders(buf[lineEnd+2:], p.Headers)

	return p, nil
}

// splitFields splits line on runs of ASCII space/tab, discarding empty
// fields, mirroring the "exactly three whitespace-delimited tokens"
// contract without allocating via strings.Fields (which would copy).
func splitFields(line []byte) [][]byte {
	var fields [][]byte
	start := -1
	for i, b := range line {
		if b == ' ' || b == '\t' {
			if start >= 0 {
				fields = append(fields, line[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, line[start:])
	}
	return fields
}

// parseRequestURI strips a case-sensitive "http://"/"https://" prefix (if
// present) and splits the remainder into host, port, and path per spec
// §4.B. Absent path yields "/"; absent port yields a nil slice.
func parseRequestURI(uri []byte) (host, port, path []byte) {
	rest := uri
	switch {
	case bytes.HasPrefix(rest, []byte("http://")):
		rest = rest[len("http://"):]
	case bytes.HasPrefix(rest, []byte("https://")):
		rest = rest[len("https://"):]
	}

	slash := bytes.IndexByte(rest, '/')
	var authority []byte
	if slash < 0 {
		authority = rest
		path = []byte("/")
	} else {
		authority = rest[:slash]
		path = rest[slash:]
	}

	if colon := bytes.IndexByte(authority, ':'); colon >= 0 {
		host = authority[:colon]
		port = authority[colon+1:] // empty port string is "absent"
	} else {
		host = authority
	}
	return host, port, path
}

// parseHeaders consumes header lines from buf (everything after the
// request line's CRLF) until an empty line or buffer exhaustion,
// inserting each into t via Set so duplicates collapse per header-table
// semantics (spec §3, §4.B).
func parseHeaders(buf []byte, t *header.Table) {
	for len(buf) > 0 {
		nl := bytes.Index(buf, []byte("\r\n"))
		var line []byte
		if nl < 0 {
			line = buf
			buf = nil
		} else {
			line = buf[:nl]
			buf = buf[nl+2:]
		}

		if len(line) == 0 {
			return // empty line: end of head
		}

		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			continue // header line without ':' is silently discarded
		}

		name := string(line[:colon])
		value := line[colon+1:]
		// trim a single run of leading spaces from the value; no other
		// whitespace trimming is specified
		for len(value) > 0 && value[0] == ' ' {
			value = value[1:]
		}
		t.Set(name, string(value))
	}
}

// Reserialize produces the origin-form request head for buf's associated
// upstream connection:
//
//	<method> SP <path> SP <version> CRLF
//	<serialized header table>
//
// No body is emitted; bytes that followed the head reach the upstream
// through the worker's residual write and the relay.
func (p *Parsed) Reserialize() string {
	var b strings.Builder
	b.Grow(p.HeadLength())
	b.Write(p.Method)
	b.WriteByte(' ')
	b.Write(p.Path)
	b.WriteByte(' ')
	b.Write(p.Version)
	b.WriteString("\r\n")
	p.Headers.Serialize(&b)
	return b.String()
}

// HeadLength returns the exact byte count Reserialize will produce:
// len(method) + 1 + len(path) + 1 + len(version) + 2 +
// header_table.serialized_length(). It must never under-report (spec
// §4.C length-soundness invariant).
func (p *Parsed) HeadLength() int {
	return len(p.Method) + 1 + len(p.Path) + 1 + len(p.Version) + 2 + p.Headers.SerializedLength()
}
