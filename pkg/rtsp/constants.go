package rtsp

// RTSP method tokens in canonical (lowercase) dispatch form
const (
	MethodOptions      = "options"
	MethodDescribe     = "describe"
	MethodSetup        = "setup"
	MethodPlay         = "play"
	MethodPause        = "pause"
	MethodTeardown     = "teardown"
	MethodAnnounce     = "announce"
	MethodGetParameter = "get_parameter"
	MethodSetParameter = "set_parameter"
	MethodRedirect     = "redirect"
)

// RTSP header names
const (
	HeaderCSeq          = "CSeq"
	HeaderTransport     = "Transport"
	HeaderSession       = "Session"
	HeaderAccept        = "Accept"
	HeaderRange         = "Range"
	HeaderPublic        = "Public"
	HeaderRTPInfo       = "RTP-Info"
	HeaderDate          = "Date"
	HeaderContentType   = "Content-Type"
	HeaderContentBase   = "Content-Base"
	HeaderContentLength = "Content-Length"
)

// RTSP status lines
const (
	StatusOK                  = "200 OK"
	StatusBadRequest          = "400 Bad Request"
	StatusSessionNotFound     = "454 Session Not Found"
	StatusInternalServerError = "500 Internal Server Error"
)

// DefaultProto is the protocol/version emitted when a request carries none.
const DefaultProto = "RTSP/1.0"

// PublicMethods is the advertised method set, returned verbatim by OPTIONS.
const PublicMethods = "OPTIONS, DESCRIBE, SETUP, TEARDOWN, PLAY, PAUSE, GET_PARAMETER, SET_PARAMETER"
