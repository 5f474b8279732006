package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/cielo/internal/actorctx"
	auditdomain "github.com/smallbiznis/cielo/internal/audit/domain"
	userdomain "github.com/smallbiznis/cielo/internal/user/domain"
	"github.com/smallbiznis/cielo/pkg/db/pagination"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	actor, _ := actorctx.FromContext(c.Request.Context())

	countryID := c.Query("country_id")
	if actor.Role == string(userdomain.RoleCountryAdmin) {
		countryID = actor.CountryID
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{
			PageSize:  queryInt(c, "page_size", 50),
			PageToken: c.Query("page_token"),
		},
		Action:     c.Query("action"),
		TargetType: c.Query("target_type"),
		TargetID:   c.Query("target_id"),
		CountryID:  countryID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
