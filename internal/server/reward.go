package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/cielo/internal/actorctx"
	rewarddomain "github.com/smallbiznis/cielo/internal/reward/domain"
	userdomain "github.com/smallbiznis/cielo/internal/user/domain"
)

type UpdateClaimStatusRequest struct {
	Status string `json:"status"`
}

type RateClaimRequest struct {
	Rating int16 `json:"rating"`
}

type UpsertStockRequest struct {
	RewardID      string `json:"reward_id"`
	DistributorID string `json:"distributor_id"`
	CountryID     string `json:"country_id"`
	Quantity      int64  `json:"quantity"`
}

func (s *Server) ClaimReward(c *gin.Context) {
	actor, _ := actorctx.FromContext(c.Request.Context())

	rewardID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid reward id"))
		return
	}

	resp, err := s.rewardSvc.Claim(c.Request.Context(), actor.UserID, rewardID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	claimID := resp.Claim.ID.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), resp.Claim.CountryID, "", nil, "reward.claimed", "reward_claim", &claimID, map[string]any{
		"reward_id":       resp.Claim.RewardID.String(),
		"points_deducted": resp.Claim.PointsDeducted,
	})

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListRewards(c *gin.Context) {
	actor, _ := actorctx.FromContext(c.Request.Context())

	countryID := actor.CountryID
	if countryID == "" {
		countryID = c.Query("country_id")
	}

	rewards, err := s.catalogSvc.ListCountryRewards(c.Request.Context(), countryID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

func (s *Server) GetClaim(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid claim id"))
		return
	}

	claim, err := s.rewardSvc.GetClaim(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !s.canSeeClaim(c, claim) {
		AbortWithError(c, ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, claim)
}

func (s *Server) ListClaims(c *gin.Context) {
	actor, _ := actorctx.FromContext(c.Request.Context())

	filter := rewarddomain.ClaimFilter{
		Status: rewarddomain.ClaimStatus(c.Query("status")),
		Limit:  queryInt(c, "limit", 50),
	}
	switch actor.Role {
	case string(userdomain.RoleStore):
		filter.StoreID = actor.UserID
	case string(userdomain.RoleDistributor):
		filter.DistributorID = actor.UserID.String()
	case string(userdomain.RoleCountryAdmin):
		filter.CountryID = actor.CountryID
	default:
		filter.CountryID = c.Query("country_id")
	}

	claims, err := s.rewardSvc.ListClaims(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claims": claims})
}

func (s *Server) UpdateClaimStatus(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid claim id"))
		return
	}

	var req UpdateClaimStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	claim, err := s.rewardSvc.UpdateStatus(c.Request.Context(), id, rewarddomain.ClaimStatus(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	claimID := claim.ID.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), claim.CountryID, "", nil, "reward_claim.status_changed", "reward_claim", &claimID, map[string]any{
		"status": string(claim.Status),
	})

	c.JSON(http.StatusOK, claim)
}

// RateClaim lets the claiming store rate a delivered reward.
func (s *Server) RateClaim(c *gin.Context) {
	actor, _ := actorctx.FromContext(c.Request.Context())

	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid claim id"))
		return
	}

	var req RateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	claim, err := s.rewardSvc.GetClaim(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if claim.StoreID != actor.UserID {
		AbortWithError(c, ErrForbidden)
		return
	}

	if err := s.rewardSvc.Rate(c.Request.Context(), id, req.Rating); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ListStock(c *gin.Context) {
	actor, _ := actorctx.FromContext(c.Request.Context())

	distributorID := c.Query("distributor_id")
	if actor.Role == string(userdomain.RoleDistributor) {
		distributorID = actor.UserID.String()
	}

	stock, err := s.rewardSvc.ListStock(c.Request.Context(), distributorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock": stock})
}

func (s *Server) UpsertStock(c *gin.Context) {
	actor, _ := actorctx.FromContext(c.Request.Context())

	var req UpsertStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	rewardID, err := parseID(req.RewardID)
	if err != nil {
		AbortWithError(c, newValidationError("reward_id", "invalid_id", "invalid reward id"))
		return
	}

	// Distributors manage only their own stock rows.
	distributorID := req.DistributorID
	countryID := req.CountryID
	if actor.Role == string(userdomain.RoleDistributor) {
		distributorID = actor.UserID.String()
		countryID = actor.CountryID
	}

	stock, err := s.rewardSvc.UpsertStock(c.Request.Context(), rewarddomain.UpsertStockRequest{
		DistributorID: distributorID,
		RewardID:      rewardID,
		CountryID:     countryID,
		Quantity:      req.Quantity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

func (s *Server) canSeeClaim(c *gin.Context, claim rewarddomain.RewardClaim) bool {
	actor, _ := actorctx.FromContext(c.Request.Context())
	switch actor.Role {
	case string(userdomain.RoleStore):
		return claim.StoreID == actor.UserID
	case string(userdomain.RoleDistributor):
		return claim.DistributorID == actor.UserID.String()
	case string(userdomain.RoleCountryAdmin):
		return claim.CountryID == actor.CountryID
	case string(userdomain.RoleSuperAdmin):
		return true
	default:
		return false
	}
}
