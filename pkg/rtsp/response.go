package rtsp

import (
	"strconv"
	"strings"
	"time"
)

// Reply is what a method handler produces: a status (empty means 200 OK),
// extra header lines in emission order, and an optional body.
type Reply struct {
	Status  string
	Headers []string
	Body    string
}

// now is swappable so tests can pin the Date header.
var now = time.Now

// BuildResponse assembles the wire form of a reply to req. The CSeq of the
// request is echoed, the Date header is always present, and the entity
// headers (Content-Type, Content-Base, Content-Length) appear only when the
// reply carries a body. Lines are CRLF-joined with the body as the final
// element.
func BuildResponse(req *Request, reply *Reply) []byte {
	status := reply.Status
	if status == "" {
		status = StatusOK
	}

	lines := []string{
		req.Proto + " " + status,
		HeaderCSeq + ": " + req.CSeq(),
	}

	if reply.Body != "" {
		if accept := req.GetHeader(HeaderAccept); accept != "" {
			lines = append(lines, HeaderContentType+": "+accept)
		}
		lines = append(lines,
			HeaderContentBase+": "+req.URL+"/",
			HeaderContentLength+": "+strconv.Itoa(len(reply.Body)),
		)
	}

	lines = append(lines, HeaderDate+": "+now().UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT"))
	lines = append(lines, reply.Headers...)
	lines = append(lines, "", reply.Body)

	return []byte(strings.Join(lines, "\r\n"))
}
