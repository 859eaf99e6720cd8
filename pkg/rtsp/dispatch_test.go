package rtsp

import (
	"errors"
	"strconv"
	"strings"
	"testing"
)

// fakeController records collaborator calls and returns canned values.
type fakeController struct {
	setupErr error
	startErr error
	setups   []uint64
	started  []uint64
	stopped  []uint64
}

func (f *fakeController) InterfaceAddr() string { return "10.0.0.1" }

func (f *fakeController) Description(multicast bool) string {
	if multicast {
		return "v=0\r\nc=IN IP4 239.255.42.42/127\r\n"
	}
	return "v=0\r\nc=IN IP4 0.0.0.0\r\n"
}

func (f *fakeController) Setup(sessionID uint64, transportURL string, streamIndex int) (int, error) {
	if f.setupErr != nil {
		return 0, f.setupErr
	}
	f.setups = append(f.setups, sessionID)
	return 6000, nil
}

func (f *fakeController) StartStreaming(sessionID uint64) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, sessionID)
	return nil
}

func (f *fakeController) StopStreaming(sessionID uint64) error {
	f.stopped = append(f.stopped, sessionID)
	return nil
}

func (f *fakeController) SequenceNumber() uint16 { return 9 }
func (f *fakeController) Timestamp() uint32      { return 3000 }

// parseResponse splits a wire response into status line, header map and body.
func parseResponse(t *testing.T, data []byte) (string, map[string]string, string) {
	t.Helper()

	head, body, ok := strings.Cut(string(data), "\r\n\r\n")
	if !ok {
		t.Fatalf("Response has no header terminator: %q", data)
	}

	lines := strings.Split(head, "\r\n")
	headers := make(map[string]string)
	for _, line := range lines[1:] {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			t.Fatalf("Bad header line %q", line)
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return lines[0], headers, body
}

func newTestDispatcher() (*Dispatcher, *fakeController, *Registry) {
	ctrl := &fakeController{}
	registry := NewRegistry()
	return NewDispatcher(ctrl, registry, nil), ctrl, registry
}

func TestDispatchOptions(t *testing.T) {
	d, _, _ := newTestDispatcher()

	requests := []string{
		"OPTIONS rtsp://10.0.0.1/stream RTSP/1.0\r\nCSeq: 1\r\n\r\n",
		"OPTIONS rtsp://elsewhere/other RTSP/1.0\r\nCSeq: 2\r\nRange: npt=5-\r\n\r\n",
	}
	for _, raw := range requests {
		status, headers, body := parseResponse(t, d.Dispatch([]byte(raw), "1.2.3.4:5"))

		if status != "RTSP/1.0 200 OK" {
			t.Errorf("Unexpected status %q", status)
		}
		if headers[HeaderPublic] != PublicMethods {
			t.Errorf("Public = %q, want %q", headers[HeaderPublic], PublicMethods)
		}
		if body != "" {
			t.Errorf("OPTIONS must have no body, got %q", body)
		}
	}
}

func TestDispatchDescribe(t *testing.T) {
	d, ctrl, _ := newTestDispatcher()

	raw := "DESCRIBE rtsp://10.0.0.1/stream RTSP/1.0\r\nCSeq: 2\r\nAccept: application/sdp\r\n\r\n"
	status, headers, body := parseResponse(t, d.Dispatch([]byte(raw), "1.2.3.4:5"))

	if status != "RTSP/1.0 200 OK" {
		t.Fatalf("Unexpected status %q", status)
	}
	if body != ctrl.Description(false) {
		t.Errorf("Body = %q, want controller description", body)
	}
	if headers[HeaderContentType] != "application/sdp" {
		t.Errorf("Content-Type = %q", headers[HeaderContentType])
	}
	if headers[HeaderContentBase] != "rtsp://10.0.0.1/stream/" {
		t.Errorf("Content-Base = %q", headers[HeaderContentBase])
	}
	if headers[HeaderContentLength] != strconv.Itoa(len(body)) {
		t.Errorf("Content-Length = %q for %d-byte body", headers[HeaderContentLength], len(body))
	}
}

func TestDispatchSetupPlayTeardown(t *testing.T) {
	d, ctrl, registry := newTestDispatcher()

	setup := "SETUP rtsp://10.0.0.1/stream/track1 RTSP/1.0\r\n" +
		"CSeq: 3\r\n" +
		"Transport: RTP/AVP;unicast;client_port=5000-5001\r\n" +
		"\r\n"
	status, headers, _ := parseResponse(t, d.Dispatch([]byte(setup), "192.168.0.20:51234"))
	if status != "RTSP/1.0 200 OK" {
		t.Fatalf("SETUP status %q", status)
	}

	wantTransport := "RTP/AVP;unicast;destination=192.168.0.20;source=10.0.0.1;client_port=5000-5001;server_port=6000-6001"
	if headers[HeaderTransport] != wantTransport {
		t.Errorf("Transport = %q, want %q", headers[HeaderTransport], wantTransport)
	}

	sessionID := headers[HeaderSession]
	if sessionID == "" {
		t.Fatal("SETUP response carries no Session header")
	}
	id, err := strconv.ParseUint(sessionID, 10, 64)
	if err != nil {
		t.Fatalf("Session header %q is not an id", sessionID)
	}
	if _, ok := registry.Lookup(id); !ok {
		t.Fatal("SETUP did not register the session")
	}

	play := "PLAY rtsp://10.0.0.1/stream RTSP/1.0\r\n" +
		"CSeq: 4\r\n" +
		"Session: " + sessionID + "\r\n" +
		"Range: npt=0-\r\n" +
		"\r\n"
	status, headers, _ = parseResponse(t, d.Dispatch([]byte(play), "192.168.0.20:51234"))
	if status != "RTSP/1.0 200 OK" {
		t.Fatalf("PLAY status %q", status)
	}
	if headers[HeaderSession] != sessionID {
		t.Errorf("PLAY must echo the session id, got %q", headers[HeaderSession])
	}
	if headers[HeaderRange] != "npt=0-" {
		t.Errorf("PLAY must echo the range, got %q", headers[HeaderRange])
	}
	if want := "url=rtsp://10.0.0.1/stream;seq=9;rtptime=3000"; headers[HeaderRTPInfo] != want {
		t.Errorf("RTP-Info = %q, want %q", headers[HeaderRTPInfo], want)
	}
	if len(ctrl.started) != 1 || ctrl.started[0] != id {
		t.Errorf("Controller start calls = %v", ctrl.started)
	}
	if session, _ := registry.Lookup(id); session.State != StatePlaying {
		t.Errorf("Session state = %v, want playing", session.State)
	}

	teardown := "TEARDOWN rtsp://10.0.0.1/stream RTSP/1.0\r\n" +
		"CSeq: 5\r\n" +
		"Session: " + sessionID + "\r\n" +
		"\r\n"
	status, headers, body := parseResponse(t, d.Dispatch([]byte(teardown), "192.168.0.20:51234"))
	if status != "RTSP/1.0 200 OK" {
		t.Fatalf("TEARDOWN status %q", status)
	}
	if body != "" {
		t.Errorf("TEARDOWN must have no body, got %q", body)
	}
	if len(ctrl.stopped) != 1 || ctrl.stopped[0] != id {
		t.Errorf("Controller stop calls = %v", ctrl.stopped)
	}
	if _, ok := registry.Lookup(id); ok {
		t.Error("TEARDOWN must remove the session")
	}
}

func TestDispatchPlayUnknownSession(t *testing.T) {
	d, ctrl, _ := newTestDispatcher()

	raw := "PLAY rtsp://10.0.0.1/stream RTSP/1.0\r\nCSeq: 6\r\nSession: 777\r\n\r\n"
	status, headers, _ := parseResponse(t, d.Dispatch([]byte(raw), "1.2.3.4:5"))

	if status != "RTSP/1.0 454 Session Not Found" {
		t.Errorf("Expected 454, got %q", status)
	}
	if headers[HeaderCSeq] != "6" {
		t.Errorf("CSeq not echoed on error, got %q", headers[HeaderCSeq])
	}
	if len(ctrl.started) != 0 {
		t.Error("Controller must not be told to stream for an unknown session")
	}
}

func TestDispatchTeardownUnknownSession(t *testing.T) {
	d, _, _ := newTestDispatcher()

	raw := "TEARDOWN rtsp://10.0.0.1/stream RTSP/1.0\r\nCSeq: 7\r\nSession: 778\r\n\r\n"
	status, _, _ := parseResponse(t, d.Dispatch([]byte(raw), "1.2.3.4:5"))

	if status != "RTSP/1.0 454 Session Not Found" {
		t.Errorf("Expected 454, got %q", status)
	}
}

func TestDispatchSetupWithoutTransport(t *testing.T) {
	d, _, registry := newTestDispatcher()

	raw := "SETUP rtsp://10.0.0.1/stream RTSP/1.0\r\nCSeq: 8\r\n\r\n"
	status, _, _ := parseResponse(t, d.Dispatch([]byte(raw), "1.2.3.4:5"))

	if status != "RTSP/1.0 400 Bad Request" {
		t.Errorf("Expected 400, got %q", status)
	}
	if registry.Len() != 0 {
		t.Error("Failed SETUP must not leave a session behind")
	}
}

func TestDispatchSetupControllerFailure(t *testing.T) {
	d, ctrl, registry := newTestDispatcher()
	ctrl.setupErr = errors.New("no ports left")

	raw := "SETUP rtsp://10.0.0.1/stream RTSP/1.0\r\n" +
		"CSeq: 9\r\nTransport: RTP/AVP;unicast;client_port=5000-5001\r\n\r\n"
	status, _, _ := parseResponse(t, d.Dispatch([]byte(raw), "1.2.3.4:5"))

	if status != "RTSP/1.0 500 Internal Server Error" {
		t.Errorf("Expected 500, got %q", status)
	}
	if registry.Len() != 0 {
		t.Error("Failed SETUP must roll the session back")
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	d, _, _ := newTestDispatcher()

	raw := "FOO rtsp://10.0.0.1/stream RTSP/1.0\r\nCSeq: 10\r\n\r\n"
	status, headers, body := parseResponse(t, d.Dispatch([]byte(raw), "1.2.3.4:5"))

	if status != "RTSP/1.0 200 OK" {
		t.Errorf("Fallback must not fail the request, got %q", status)
	}
	if body != "Not implemented" {
		t.Errorf("Body = %q, want 'Not implemented'", body)
	}
	for name := range headers {
		switch name {
		case HeaderCSeq, HeaderDate, HeaderContentType, HeaderContentBase, HeaderContentLength:
		default:
			t.Errorf("Fallback reply must carry no extra headers, found %q", name)
		}
	}
}

func TestDispatchStubsAndAnnounce(t *testing.T) {
	d, _, _ := newTestDispatcher()

	for _, method := range []string{"GET_PARAMETER", "SET_PARAMETER", "REDIRECT", "PAUSE", "ANNOUNCE"} {
		raw := method + " rtsp://10.0.0.1/stream RTSP/1.0\r\nCSeq: 11\r\n\r\n"
		status, _, body := parseResponse(t, d.Dispatch([]byte(raw), "1.2.3.4:5"))

		if status != "RTSP/1.0 200 OK" {
			t.Errorf("%s status = %q", method, status)
		}
		if body != "" {
			t.Errorf("%s must have no body, got %q", method, body)
		}
	}
}

func TestDispatchMalformedRequest(t *testing.T) {
	d, _, _ := newTestDispatcher()

	raw := "NOT A REQUEST\r\nCSeq: 12\r\n\r\n"
	status, headers, _ := parseResponse(t, d.Dispatch([]byte(raw), "1.2.3.4:5"))

	if status != "RTSP/1.0 400 Bad Request" {
		t.Errorf("Expected 400, got %q", status)
	}
	if headers[HeaderCSeq] != "12" {
		t.Errorf("CSeq must be echoed even on malformed input, got %q", headers[HeaderCSeq])
	}
}
