package rtsp

import (
	"errors"
	"net"
	"strconv"
	"strings"
)

// ErrMalformedRequest is returned when the request line does not carry a
// method token followed by a URL.
var ErrMalformedRequest = errors.New("malformed request line")

// Request is a parsed RTSP request.
type Request struct {
	Method      string // canonical lowercase method token
	URL         string
	Proto       string // e.g. "RTSP/1.0"
	Headers     map[string]string
	Body        string
	RemoteHost  string // sender address without port
	IsMulticast bool   // derived from URL and Transport content
}

// ParseRequest tokenizes a raw request buffer. On a malformed request line
// it still returns the partially parsed request (headers included, so the
// CSeq can be echoed) together with ErrMalformedRequest.
func ParseRequest(data []byte, remoteAddr string) (*Request, error) {
	req := &Request{
		Proto:      DefaultProto,
		Headers:    make(map[string]string),
		RemoteHost: hostOnly(remoteAddr),
	}

	head, body, _ := strings.Cut(string(data), "\r\n\r\n")
	req.Body = body

	lines := strings.Split(head, "\r\n")
	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" {
			continue
		}
		req.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	fields := strings.Fields(lines[0])
	if len(fields) < 2 || !strings.Contains(fields[1], "://") {
		return req, ErrMalformedRequest
	}
	req.Method = strings.ToLower(fields[0])
	req.URL = fields[1]
	if len(fields) >= 3 {
		req.Proto = fields[2]
	}

	req.IsMulticast = strings.Contains(strings.ToLower(req.URL), "multicast") ||
		strings.Contains(strings.ToLower(req.GetHeader(HeaderTransport)), "multicast")

	return req, nil
}

// GetHeader returns the value of the named header, matching case-insensitively.
func (r *Request) GetHeader(name string) string {
	if v, ok := r.Headers[name]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// CSeq returns the request sequence number header value.
func (r *Request) CSeq() string {
	return r.GetHeader(HeaderCSeq)
}

// SessionID parses the Session header, ignoring any ";timeout=..." suffix.
func (r *Request) SessionID() (uint64, bool) {
	value := r.GetHeader(HeaderSession)
	if value == "" {
		return 0, false
	}
	value, _, _ = strings.Cut(value, ";")
	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// StreamIndex derives the stream index from a trailing "track<N>" URL
// segment; URLs without one address stream 0.
func (r *Request) StreamIndex() int {
	segment := r.URL
	if i := strings.LastIndex(segment, "/"); i >= 0 {
		segment = segment[i+1:]
	}
	digits := strings.TrimLeftFunc(segment, func(c rune) bool { return c < '0' || c > '9' })
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0
	}
	return n - 1
}

func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
