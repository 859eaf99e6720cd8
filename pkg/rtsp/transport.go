package rtsp

import (
	"fmt"
	"strings"
)

// NegotiateTransport merges a client transport spec with the server's view
// of the connection. The unicast marker selects the "client_port=" split
// token, multicast specs split at "port=". The destination/source pair is
// inserted ahead of the port specifier and the allocated server port pair
// is appended after the client's port segment. Pure function of its four
// inputs.
func NegotiateTransport(clientSpec, remoteHost, ifaceAddr string, serverPort int) string {
	token := "port="
	if strings.Contains(clientSpec, "unicast") {
		token = "client_port="
	}

	prefix, ports, found := strings.Cut(clientSpec, token)
	if !found {
		prefix = clientSpec
		if prefix != "" && !strings.HasSuffix(prefix, ";") {
			prefix += ";"
		}
		ports = ""
	}

	prefix += fmt.Sprintf("destination=%s;source=%s;", remoteHost, ifaceAddr)

	return prefix + token + ports + fmt.Sprintf(";server_port=%d-%d", serverPort, serverPort+1)
}
