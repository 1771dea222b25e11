package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ListProductGroups proxies the product group catalog from the remote
// billing system.
func (s *Server) ListProductGroups(c *gin.Context) {
	groups, err := s.dns.ProductGroups(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// GetServiceInfo proxies a single service's detail. This is one of the
// known slow remote actions, so the underlying client stretches its
// timeout for it.
func (s *Server) GetServiceInfo(c *gin.Context) {
	serviceID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || serviceID <= 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	info, err := s.sso.ServiceInfo(c.Request.Context(), serviceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
