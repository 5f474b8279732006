package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/cielo/internal/actorctx"
	storedomain "github.com/smallbiznis/cielo/internal/store/domain"
	userdomain "github.com/smallbiznis/cielo/internal/user/domain"
)

type CreateStoreCodeRequest struct {
	Label         string `json:"label"`
	City          string `json:"city"`
	CountryID     string `json:"country_id"`
	DistributorID string `json:"distributor_id"`
}

func (s *Server) CreateStoreCode(c *gin.Context) {
	var req CreateStoreCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	code, err := s.storeSvc.CreateCode(c.Request.Context(), storedomain.CreateCodeRequest{
		Label:         req.Label,
		City:          req.City,
		CountryID:     s.scopeCountry(c, req.CountryID),
		DistributorID: req.DistributorID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.AuditLog(c.Request.Context(), code.CountryID, "", nil, "store_code.created", "store_code", &code.Code, nil)

	c.JSON(http.StatusCreated, code)
}

func (s *Server) ListStoreCodes(c *gin.Context) {
	actor, _ := actorctx.FromContext(c.Request.Context())

	countryID := c.Query("country_id")
	if actor.Role == string(userdomain.RoleCountryAdmin) {
		countryID = actor.CountryID
	}

	codes, err := s.storeSvc.ListCodes(c.Request.Context(), countryID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"codes": codes})
}

func (s *Server) ListStores(c *gin.Context) {
	actor, _ := actorctx.FromContext(c.Request.Context())

	countryID := c.Query("country_id")
	distributorID := c.Query("distributor_id")
	switch actor.Role {
	case string(userdomain.RoleCountryAdmin):
		countryID = actor.CountryID
	case string(userdomain.RoleDistributor):
		distributorID = actor.UserID.String()
	}

	stores, err := s.storeSvc.List(c.Request.Context(), countryID, distributorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stores": stores})
}

// MyStore returns the calling store's profile with its current balances.
func (s *Server) MyStore(c *gin.Context) {
	actor, _ := actorctx.FromContext(c.Request.Context())

	store, err := s.storeSvc.GetByUserID(c.Request.Context(), actor.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, store)
}
