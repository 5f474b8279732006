package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	storedomain "github.com/smallbiznis/cielo/internal/store/domain"
)

type RegisterStoreRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	StoreCode string `json:"store_code"`
	Phone     string `json:"phone"`
	CountryID string `json:"country_id"`
	OwnerName string `json:"owner_name"`
}

// RegisterStore is the public shopkeeper signup. It consumes a single-use
// registration code handed out by the country admin.
func (s *Server) RegisterStore(c *gin.Context) {
	var req RegisterStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	resp, err := s.storeSvc.Register(c.Request.Context(), storedomain.RegisterRequest{
		Email:     req.Email,
		Password:  req.Password,
		StoreCode: req.StoreCode,
		Phone:     req.Phone,
		CountryID: req.CountryID,
		OwnerName: req.OwnerName,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	userID := resp.UserID.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), req.CountryID, "user", &userID, "store.registered", "store", &userID, map[string]any{
		"store_code": req.StoreCode,
	})

	c.JSON(http.StatusCreated, resp)
}
