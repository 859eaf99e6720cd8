package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lyra/internal/relay"
)

// SessionInfo is the wire form of one registry entry.
type SessionInfo struct {
	ID         uint64 `json:"id"`
	State      string `json:"state"`
	Multicast  bool   `json:"multicast"`
	ServerPort int    `json:"server_port"`
}

// SessionsResponse is the response body for the sessions endpoint.
type SessionsResponse struct {
	Count    int           `json:"count"`
	Sessions []SessionInfo `json:"sessions"`
}

// StatsResponse is the response body for the stats endpoint.
type StatsResponse struct {
	Sessions int         `json:"sessions"`
	Relay    relay.Stats `json:"relay"`
}

// SessionsHandler handles GET /api/v1/sessions requests
func (s *Server) SessionsHandler(c *gin.Context) {
	sessions := s.registry.Sessions()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, SessionInfo{
			ID:         session.ID,
			State:      session.State.String(),
			Multicast:  session.Transport.Multicast,
			ServerPort: session.Transport.ServerPort,
		})
	}

	c.JSON(http.StatusOK, SessionsResponse{
		Count:    len(infos),
		Sessions: infos,
	})
}

// StatsHandler handles GET /api/v1/stats requests
func (s *Server) StatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, StatsResponse{
		Sessions: s.registry.Len(),
		Relay:    s.relay.Stats(),
	})
}
