package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/cielo/internal/actorctx"
	userdomain "github.com/smallbiznis/cielo/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectInvoice     = "invoice"
	ObjectRewardClaim = "reward_claim"
	ObjectRewardStock = "reward_stock"
	ObjectCatalog     = "catalog"
	ObjectStoreCode   = "store_code"
	ObjectUser        = "user"
	ObjectAuditLog    = "audit_log"
)

const (
	ActionInvoiceCreate = "invoice.create"
	ActionInvoiceDecide = "invoice.decide"
	ActionInvoiceDelete = "invoice.delete"
	ActionInvoiceView   = "invoice.view"

	ActionClaimCreate     = "reward_claim.create"
	ActionClaimTransition = "reward_claim.transition"
	ActionClaimView       = "reward_claim.view"

	ActionStockManage = "reward_stock.manage"
	ActionStockView   = "reward_stock.view"

	ActionCatalogManage = "catalog.manage"
	ActionCatalogView   = "catalog.view"

	ActionStoreCodeManage = "store_code.manage"

	ActionUserManageDistributor = "user.manage_distributor"
	ActionUserManageAdmin       = "user.manage_admin"

	ActionAuditLogView = "audit_log.view"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

type Service interface {
	Authorize(ctx context.Context, object, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, object, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	actor, ok := actorctx.FromContext(ctx)
	if !ok || actor.UserID == 0 {
		return ErrInvalidActor
	}
	if !userdomain.Role(actor.Role).Valid() {
		return ErrInvalidActor
	}

	subject := fmt.Sprintf("user:%s", actor.UserID.String())
	roleSubject := fmt.Sprintf("role:%s", actor.Role)
	if has, _ := s.enforcer.HasGroupingPolicy(subject, roleSubject); !has {
		if _, err := s.enforcer.AddGroupingPolicy(subject, roleSubject); err != nil {
			return err
		}
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// store
		{"role:store", ObjectInvoice, ActionInvoiceCreate},
		{"role:store", ObjectInvoice, ActionInvoiceView},
		{"role:store", ObjectRewardClaim, ActionClaimCreate},
		{"role:store", ObjectRewardClaim, ActionClaimView},
		{"role:store", ObjectCatalog, ActionCatalogView},

		// distributor
		{"role:distributor", ObjectInvoice, ActionInvoiceDecide},
		{"role:distributor", ObjectInvoice, ActionInvoiceView},
		{"role:distributor", ObjectRewardClaim, ActionClaimTransition},
		{"role:distributor", ObjectRewardClaim, ActionClaimView},
		{"role:distributor", ObjectRewardStock, ActionStockManage},
		{"role:distributor", ObjectRewardStock, ActionStockView},
		{"role:distributor", ObjectCatalog, ActionCatalogView},

		// country admin
		{"role:admin_country", ObjectInvoice, ActionInvoiceDecide},
		{"role:admin_country", ObjectInvoice, ActionInvoiceDelete},
		{"role:admin_country", ObjectInvoice, ActionInvoiceView},
		{"role:admin_country", ObjectRewardClaim, ActionClaimTransition},
		{"role:admin_country", ObjectRewardClaim, ActionClaimView},
		{"role:admin_country", ObjectRewardStock, ActionStockView},
		{"role:admin_country", ObjectCatalog, ActionCatalogManage},
		{"role:admin_country", ObjectCatalog, ActionCatalogView},
		{"role:admin_country", ObjectStoreCode, ActionStoreCodeManage},
		{"role:admin_country", ObjectUser, ActionUserManageDistributor},
		{"role:admin_country", ObjectAuditLog, ActionAuditLogView},
	}

	// super admin can do everything a country admin can, plus admin management
	superOnly := [][]string{
		{"role:super_admin", ObjectUser, ActionUserManageAdmin},
	}
	for _, p := range policies {
		if p[0] == "role:admin_country" {
			superOnly = append(superOnly, []string{"role:super_admin", p[1], p[2]})
		}
	}
	for _, p := range append(policies, superOnly...) {
		if has, _ := enforcer.HasPolicy(p[0], p[1], p[2]); !has {
			if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
				return err
			}
		}
	}
	return nil
}
