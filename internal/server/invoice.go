package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/cielo/internal/actorctx"
	invoicedomain "github.com/smallbiznis/cielo/internal/invoice/domain"
	pointsdomain "github.com/smallbiznis/cielo/internal/points/domain"
	userdomain "github.com/smallbiznis/cielo/internal/user/domain"
)

type ConfirmInvoiceRequest struct {
	InvoiceNumber string              `json:"invoice_number"`
	ImageURL      string              `json:"image_url"`
	Products      []pointsdomain.Line `json:"products"`
	TotalAmount   float64             `json:"total_amount"`
}

type DecideInvoiceRequest struct {
	Approve        bool   `json:"approve"`
	Reason         string `json:"reason"`
	PointsOverride *int64 `json:"points_override"`
}

func (s *Server) ConfirmInvoice(c *gin.Context) {
	actor, _ := actorctx.FromContext(c.Request.Context())

	var req ConfirmInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	resp, err := s.invoiceSvc.Confirm(c.Request.Context(), invoicedomain.ConfirmRequest{
		StoreID:       actor.UserID,
		CountryID:     actor.CountryID,
		InvoiceNumber: req.InvoiceNumber,
		ImageURL:      req.ImageURL,
		Products:      req.Products,
		TotalAmount:   req.TotalAmount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) DecideInvoice(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid invoice id"))
		return
	}

	var req DecideInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	// Only admins may override the computed points.
	if req.PointsOverride != nil {
		actor, _ := actorctx.FromContext(c.Request.Context())
		switch actor.Role {
		case string(userdomain.RoleSuperAdmin), string(userdomain.RoleCountryAdmin):
		default:
			AbortWithError(c, ErrForbidden)
			return
		}
	}

	invoice, err := s.invoiceSvc.Decide(c.Request.Context(), invoicedomain.DecideRequest{
		InvoiceID:      id,
		Approve:        req.Approve,
		Reason:         req.Reason,
		PointsOverride: req.PointsOverride,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (s *Server) GetInvoice(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid invoice id"))
		return
	}

	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !s.canSeeInvoice(c, invoice) {
		AbortWithError(c, ErrForbidden)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (s *Server) ListInvoices(c *gin.Context) {
	actor, _ := actorctx.FromContext(c.Request.Context())

	filter := invoicedomain.ListFilter{
		Status: invoicedomain.InvoiceStatus(c.Query("status")),
		Limit:  queryInt(c, "limit", 50),
	}

	// Scope by role: stores see their own, distributors their assignment,
	// country admins their country.
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

	invoices, err := s.invoiceSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid invoice id"))
		return
	}

	if err := s.invoiceSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	targetID := id.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), "", "", nil, "invoice.deleted", "invoice", &targetID, nil)

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) canSeeInvoice(c *gin.Context, invoice invoicedomain.Invoice) bool {
	actor, _ := actorctx.FromContext(c.Request.Context())
	switch actor.Role {
	case string(userdomain.RoleStore):
		return invoice.StoreID == actor.UserID
	case string(userdomain.RoleDistributor):
		return invoice.DistributorID == actor.UserID.String()
	case string(userdomain.RoleCountryAdmin):
		return invoice.CountryID == actor.CountryID
	case string(userdomain.RoleSuperAdmin):
		return true
	default:
		return false
	}
}

func parseID(raw string) (snowflake.ID, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return snowflake.ID(n), nil
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
