package authorization

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/stefanratchev/Veda-Legal-sub000/internal/audit/domain"
)

//go:embed model.conf
var modelText string

const (
	ObjectServiceDescription = "service_description"
	ObjectTopic              = "topic"
	ObjectLineItem           = "line_item"
	ObjectTimeEntry          = "time_entry"
	ObjectClient             = "client"
	ObjectAuditLog           = "audit_log"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionFinalize = "finalize"
	ActionUnlock   = "unlock"
	ActionWaive    = "waive"
	ActionDiscount = "discount"
)

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

var (
	ErrInvalidActor = errors.New("invalid_actor")
	ErrInvalidRole  = errors.New("invalid_role")
	ErrForbidden    = errors.New("forbidden")
)

type Service interface {
	Authorize(ctx context.Context, actorID, role, object, action string) error
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
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

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	adminObjects := []string{
		ObjectServiceDescription,
		ObjectTopic,
		ObjectLineItem,
		ObjectTimeEntry,
		ObjectClient,
		ObjectAuditLog,
	}
	adminActions := []string{
		ActionView, ActionCreate, ActionUpdate, ActionDelete,
		ActionFinalize, ActionUnlock, ActionWaive, ActionDiscount,
	}
	for _, object := range adminObjects {
		for _, action := range adminActions {
			if _, err := enforcer.AddPolicy("role:admin", object, action); err != nil {
				return err
			}
		}
	}

	employeePolicies := [][2]string{
		{ObjectServiceDescription, ActionView},
		{ObjectTopic, ActionView},
		{ObjectLineItem, ActionView},
		{ObjectTimeEntry, ActionView},
		{ObjectTimeEntry, ActionCreate},
		{ObjectClient, ActionView},
	}
	for _, p := range employeePolicies {
		if _, err := enforcer.AddPolicy("role:employee", p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actorID, role, object, action string) error {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return ErrInvalidActor
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role != RoleAdmin && role != RoleEmployee {
		return ErrInvalidRole
	}

	// The role is asserted per request, so enforcement runs against the
	// claimed role only. Persisting an actor-to-role grouping would let a
	// previously seen role leak into later requests.
	allowed, err := s.enforcer.Enforce("role:"+role, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actorID, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actorID, object, action string) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.AuditLog(ctx, "authorization.denied", object, nil, map[string]any{
		"actor_id": actorID,
		"action":   action,
	}); err != nil {
		s.log.Warn("failed to audit denial", zap.Error(err))
	}
}

var Module = fx.Module("authorization.service",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)
