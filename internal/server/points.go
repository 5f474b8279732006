package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/cielo/internal/actorctx"
	userdomain "github.com/smallbiznis/cielo/internal/user/domain"
)

// ListPointTransactions returns the ledger for the calling store, or for
// ?store_id= when an admin asks.
func (s *Server) ListPointTransactions(c *gin.Context) {
	actor, _ := actorctx.FromContext(c.Request.Context())

	storeID := actor.UserID
	if actor.Role != string(userdomain.RoleStore) {
		id, err := parseID(c.Query("store_id"))
		if err != nil {
			AbortWithError(c, newValidationError("store_id", "invalid_id", "invalid store id"))
			return
		}
		storeID = id
	}

	txns, err := s.pointsSvc.ListByStore(c.Request.Context(), storeID, queryInt(c, "limit", 50))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

// DeletePointTransaction removes one ledger entry and reverts its effect on
// the store balance.
func (s *Server) DeletePointTransaction(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid transaction id"))
		return
	}

	if err := s.pointsSvc.DeleteTransaction(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	targetID := id.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), "", "", nil, "point_transaction.deleted", "point_transaction", &targetID, nil)

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
