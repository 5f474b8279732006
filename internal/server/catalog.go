package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/cielo/internal/actorctx"
	catalogdomain "github.com/smallbiznis/cielo/internal/catalog/domain"
	userdomain "github.com/smallbiznis/cielo/internal/user/domain"
)

type UpsertGlobalProductRequest struct {
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	PointsPerUnit int64  `json:"points_per_unit"`
}

type UpsertCountryProductRequest struct {
	CountryID     string `json:"country_id"`
	SKU           string `json:"sku"`
	LocalSKU      string `json:"local_sku"`
	LocalName     string `json:"local_name"`
	PointsPerUnit int64  `json:"points_per_unit"`
}

type CreateGlobalRewardRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	PointsRequired int64  `json:"points_required"`
}

type CreateCountryRewardRequest struct {
	CountryID      string `json:"country_id"`
	GlobalRewardID string `json:"global_reward_id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	PointsRequired int64  `json:"points_required"`
	AutoClaim      bool   `json:"auto_claim"`
}

func (s *Server) ListProducts(c *gin.Context) {
	actor, _ := actorctx.FromContext(c.Request.Context())

	countryID := actor.CountryID
	if countryID == "" {
		countryID = c.Query("country_id")
	}

	global, err := s.catalogSvc.ListGlobalProducts(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := gin.H{"global": global}
	if countryID != "" {
		country, err := s.catalogSvc.ListCountryProducts(c.Request.Context(), countryID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		resp["country"] = country
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) UpsertGlobalProduct(c *gin.Context) {
	var req UpsertGlobalProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	product, err := s.catalogSvc.UpsertGlobalProduct(c.Request.Context(), catalogdomain.UpsertGlobalProductRequest{
		SKU:           req.SKU,
		Name:          req.Name,
		PointsPerUnit: req.PointsPerUnit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) UpsertCountryProduct(c *gin.Context) {
	var req UpsertCountryProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	countryID := s.scopeCountry(c, req.CountryID)
	product, err := s.catalogSvc.UpsertCountryProduct(c.Request.Context(), catalogdomain.UpsertCountryProductRequest{
		CountryID:     countryID,
		SKU:           req.SKU,
		LocalSKU:      req.LocalSKU,
		LocalName:     req.LocalName,
		PointsPerUnit: req.PointsPerUnit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) CreateGlobalReward(c *gin.Context) {
	var req CreateGlobalRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	reward, err := s.catalogSvc.CreateGlobalReward(c.Request.Context(), catalogdomain.CreateGlobalRewardRequest{
		Name:           req.Name,
		Description:    req.Description,
		PointsRequired: req.PointsRequired,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reward)
}

func (s *Server) CreateCountryReward(c *gin.Context) {
	var req CreateCountryRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	var globalRewardID *snowflake.ID
	if req.GlobalRewardID != "" {
		id, err := parseID(req.GlobalRewardID)
		if err != nil {
			AbortWithError(c, newValidationError("global_reward_id", "invalid_id", "invalid global reward id"))
			return
		}
		globalRewardID = &id
	}

	countryID := s.scopeCountry(c, req.CountryID)
	reward, err := s.catalogSvc.CreateCountryReward(c.Request.Context(), catalogdomain.CreateCountryRewardRequest{
		CountryID:      countryID,
		GlobalRewardID: globalRewardID,
		Name:           req.Name,
		Description:    req.Description,
		PointsRequired: req.PointsRequired,
		AutoClaim:      req.AutoClaim,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reward)
}

// scopeCountry pins country admins to their own country regardless of the
// request body.
func (s *Server) scopeCountry(c *gin.Context, requested string) string {
	actor, _ := actorctx.FromContext(c.Request.Context())
	if actor.Role == string(userdomain.RoleCountryAdmin) {
		return actor.CountryID
	}
	return requested
}
