package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	userdomain "github.com/smallbiznis/cielo/internal/user/domain"
)

type CreateDistributorRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	CountryID string `json:"country_id"`
	Password  string `json:"password"`
}

type AssignCountryAdminRequest struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	CountryID string `json:"country_id"`
	Password  string `json:"password"`
}

func (s *Server) CreateDistributor(c *gin.Context) {
	var req CreateDistributorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	created, err := s.userSvc.CreateDistributor(c.Request.Context(), userdomain.CreateDistributorRequest{
		Email:     req.Email,
		Name:      req.Name,
		Phone:     req.Phone,
		CountryID: req.CountryID,
		Password:  req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	targetID := created.ID.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), created.CountryID, "", nil, "user.distributor_created", "user", &targetID, map[string]any{
		"email": created.Email,
	})

	c.JSON(http.StatusCreated, gin.H{"user_id": created.ID})
}

func (s *Server) AssignCountryAdmin(c *gin.Context) {
	var req AssignCountryAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	created, err := s.userSvc.AssignCountryAdmin(c.Request.Context(), userdomain.AssignCountryAdminRequest{
		Email:     req.Email,
		Name:      req.Name,
		Phone:     req.Phone,
		CountryID: req.CountryID,
		Password:  req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	targetID := created.ID.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), created.CountryID, "", nil, "user.country_admin_assigned", "user", &targetID, map[string]any{
		"email": created.Email,
	})

	c.JSON(http.StatusCreated, gin.H{"user_id": created.ID})
}

func (s *Server) DeleteCountryAdmin(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid user id"))
		return
	}

	if err := s.userSvc.DeleteCountryAdmin(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	targetID := id.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), "", "", nil, "user.country_admin_deleted", "user", &targetID, nil)

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) ListUsers(c *gin.Context) {
	users, err := s.userSvc.List(c.Request.Context(), userdomain.ListUsersRequest{
		CountryID: c.Query("country_id"),
		Role:      userdomain.Role(c.Query("role")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
