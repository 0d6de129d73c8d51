package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/stefanratchev/Veda-Legal-sub000/internal/audit/domain"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/billing"
	clientdomain "github.com/stefanratchev/Veda-Legal-sub000/internal/client/domain"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/clock"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/config"
	obscontext "github.com/stefanratchev/Veda-Legal-sub000/internal/observability/context"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/observability/metrics"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/servicedesc/domain"
	timeentrydomain "github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry/domain"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry/writeoff"
	"github.com/stefanratchev/Veda-Legal-sub000/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Defaults   *config.BillingDefaultsHolder
	Reconciler *writeoff.Reconciler
	Metrics    *metrics.Metrics
	AuditSvc   auditdomain.Service
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clock      clock.Clock
	defaults   *config.BillingDefaultsHolder
	reconciler *writeoff.Reconciler
	metrics    *metrics.Metrics
	auditSvc   auditdomain.Service

	clientrepo repository.Repository[clientdomain.Client]
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("servicedesc.service"),
		genID: p.GenID,

		clock:      p.Clock,
		defaults:   p.Defaults,
		reconciler: p.Reconciler,
		metrics:    p.Metrics,
		auditSvc:   p.AuditSvc,

		clientrepo: repository.ProvideStore[clientdomain.Client](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.ServiceDescription, error) {
	if !req.PeriodStart.Before(req.PeriodEnd) {
		return domain.ServiceDescription{}, domain.ErrInvalidPeriod
	}

	clientID, err := parseID(req.ClientID, domain.ErrClientNotFound)
	if err != nil {
		return domain.ServiceDescription{}, err
	}
	client, err := s.clientrepo.FindOne(ctx, &clientdomain.Client{ID: clientID})
	if err != nil {
		return domain.ServiceDescription{}, err
	}
	if client == nil {
		return domain.ServiceDescription{}, domain.ErrClientNotFound
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = client.Currency
	}
	if currency == "" {
		currency = s.defaults.Get().Currency
	}

	doc := domain.ServiceDescription{
		ID:          s.genID.Generate(),
		ClientID:    clientID,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Status:      domain.DocumentStatusDraft,
		Currency:    currency,
		CreatedAt:   s.clock.Now(),
		UpdatedAt:   s.clock.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
		if !req.PullUnbilled {
			return nil
		}
		return s.seedFromUnbilled(ctx, tx, &doc)
	})
	if err != nil {
		return domain.ServiceDescription{}, err
	}

	s.audit(ctx, "service_description.created", doc.ID, map[string]any{
		"client_id": doc.ClientID.String(),
		"currency":  doc.Currency,
	})
	return doc, nil
}

// seedFromUnbilled pulls the client's unreferenced time entries inside the
// billing period into a single hourly topic.
func (s *Service) seedFromUnbilled(ctx context.Context, tx *gorm.DB, doc *domain.ServiceDescription) error {
	var entries []timeentrydomain.TimeEntry
	err := tx.WithContext(ctx).
		Where("client_id = ? AND work_date >= ? AND work_date <= ?", doc.ClientID, doc.PeriodStart, doc.PeriodEnd).
		Where("NOT EXISTS (SELECT 1 FROM line_items WHERE line_items.time_entry_id = time_entries.id)").
		Order("work_date ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	rate := decimal.NewFromFloat(s.defaults.Get().DefaultHourlyRate)
	topic := domain.Topic{
		ID:                   s.genID.Generate(),
		ServiceDescriptionID: doc.ID,
		TopicName:            "General",
		DisplayOrder:         0,
		PricingMode:          billing.PricingModeHourly,
		HourlyRate:           &rate,
		CreatedAt:            s.clock.Now(),
		UpdatedAt:            s.clock.Now(),
	}
	if err := tx.Create(&topic).Error; err != nil {
		return err
	}

	items := make([]domain.LineItem, 0, len(entries))
	for i, entry := range entries {
		entryID := entry.ID
		workDate := entry.WorkDate
		hours := entry.Hours
		items = append(items, domain.LineItem{
			ID:           s.genID.Generate(),
			TopicID:      topic.ID,
			TimeEntryID:  &entryID,
			Date:         &workDate,
			Description:  entry.Description,
			Hours:        &hours,
			DisplayOrder: i,
			CreatedAt:    s.clock.Now(),
			UpdatedAt:    s.clock.Now(),
		})
	}
	if err := tx.CreateInBatches(items, 100).Error; err != nil {
		return err
	}

	topic.LineItems = items
	doc.Topics = []domain.Topic{topic}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.DocumentView, error) {
	docID, err := parseID(id, domain.ErrNotFound)
	if err != nil {
		return domain.DocumentView{}, err
	}

	var doc domain.ServiceDescription
	err = s.db.WithContext(ctx).
		Where("id = ?", docID).
		First(&doc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.DocumentView{}, domain.ErrNotFound
		}
		return domain.DocumentView{}, err
	}

	topics, err := loadTopics(ctx, s.db, doc.ID, true)
	if err != nil {
		return domain.DocumentView{}, err
	}
	doc.Topics = topics

	return domain.DocumentView{
		ServiceDescription: doc,
		Totals:             billing.AggregateDocument(doc.BillingInput()),
	}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := &domain.ServiceDescription{}
	if req.ClientID != nil {
		clientID, err := parseID(*req.ClientID, domain.ErrClientNotFound)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.ClientID = clientID
	}
	if req.Status != nil {
		if *req.Status != domain.DocumentStatusDraft && *req.Status != domain.DocumentStatusFinalized {
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = *req.Status
	}

	var docs []domain.ServiceDescription
	q := s.db.WithContext(ctx).Where(filter).Order("period_start DESC, id DESC")
	if err := q.Find(&docs).Error; err != nil {
		return domain.ListResponse{}, err
	}
	return domain.ListResponse{ServiceDescriptions: docs}, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id string, req domain.UpdateStatusRequest) (domain.ServiceDescription, error) {
	docID, err := parseID(id, domain.ErrNotFound)
	if err != nil {
		return domain.ServiceDescription{}, err
	}
	if req.Status != domain.DocumentStatusDraft && req.Status != domain.DocumentStatusFinalized {
		return domain.ServiceDescription{}, domain.ErrInvalidStatus
	}

	var doc domain.ServiceDescription
	var transition string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err = lockDocument(ctx, tx, docID)
		if err != nil {
			return err
		}
		if doc.Status == req.Status {
			return domain.ErrInvalidStatus
		}

		switch req.Status {
		case domain.DocumentStatusFinalized:
			now := s.clock.Now()
			doc.Status = domain.DocumentStatusFinalized
			doc.FinalizedAt = &now
			if actorID, _ := obscontext.ActorFromContext(ctx); actorID != "" {
				doc.FinalizedByID = &actorID
			}
			transition = "finalized"
		case domain.DocumentStatusDraft:
			doc.Status = domain.DocumentStatusDraft
			doc.FinalizedAt = nil
			doc.FinalizedByID = nil
			transition = "unlocked"
		}
		doc.UpdatedAt = s.clock.Now()

		return tx.Model(&domain.ServiceDescription{}).
			Where("id = ?", doc.ID).
			Select("status", "finalized_at", "finalized_by_id", "updated_at").
			Updates(map[string]any{
				"status":          doc.Status,
				"finalized_at":    doc.FinalizedAt,
				"finalized_by_id": doc.FinalizedByID,
				"updated_at":      doc.UpdatedAt,
			}).Error
	})
	if err != nil {
		return domain.ServiceDescription{}, err
	}

	s.metrics.RecordStatusTransition(transition)
	s.audit(ctx, fmt.Sprintf("service_description.%s", transition), doc.ID, nil)
	return doc, nil
}

func (s *Service) UpdateDiscount(ctx context.Context, id string, patch billing.DiscountPatch) (domain.ServiceDescription, error) {
	docID, err := parseID(id, domain.ErrNotFound)
	if err != nil {
		return domain.ServiceDescription{}, err
	}

	var doc domain.ServiceDescription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err = lockDocument(ctx, tx, docID)
		if err != nil {
			return err
		}
		if doc.Status == domain.DocumentStatusFinalized {
			return domain.ErrDocumentFinalized
		}

		resolved, err := billing.ResolveDiscount(doc.Discount(), patch)
		if err != nil {
			return err
		}
		doc.DiscountType, doc.DiscountValue = splitDiscount(resolved)
		doc.UpdatedAt = s.clock.Now()

		return tx.Model(&domain.ServiceDescription{}).
			Where("id = ?", doc.ID).
			Updates(map[string]any{
				"discount_type":  doc.DiscountType,
				"discount_value": doc.DiscountValue,
				"updated_at":     doc.UpdatedAt,
			}).Error
	})
	if err != nil {
		return domain.ServiceDescription{}, err
	}

	s.audit(ctx, "service_description.discount_updated", doc.ID, nil)
	return doc, nil
}

func (s *Service) UpdateRetainer(ctx context.Context, id string, patch domain.RetainerPatch) (domain.ServiceDescription, error) {
	docID, err := parseID(id, domain.ErrNotFound)
	if err != nil {
		return domain.ServiceDescription{}, err
	}

	var doc domain.ServiceDescription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err = lockDocument(ctx, tx, docID)
		if err != nil {
			return err
		}
		if doc.Status == domain.DocumentStatusFinalized {
			return domain.ErrDocumentFinalized
		}

		if patch.Clear {
			doc.RetainerFee = nil
			doc.RetainerHours = nil
			doc.RetainerOverageRate = nil
		} else {
			if patch.Fee != nil {
				doc.RetainerFee = patch.Fee
			}
			if patch.Hours != nil {
				doc.RetainerHours = patch.Hours
			}
			if patch.OverageRate != nil {
				doc.RetainerOverageRate = patch.OverageRate
			}
			if err := validateRetainer(doc); err != nil {
				return err
			}
		}
		doc.UpdatedAt = s.clock.Now()

		return tx.Model(&domain.ServiceDescription{}).
			Where("id = ?", doc.ID).
			Updates(map[string]any{
				"retainer_fee":          doc.RetainerFee,
				"retainer_hours":        doc.RetainerHours,
				"retainer_overage_rate": doc.RetainerOverageRate,
				"updated_at":            doc.UpdatedAt,
			}).Error
	})
	if err != nil {
		return domain.ServiceDescription{}, err
	}

	s.audit(ctx, "service_description.retainer_updated", doc.ID, nil)
	return doc, nil
}

func (s *Service) Delete(ctx context.Context, id string) (domain.DeleteResult, error) {
	docID, err := parseID(id, domain.ErrNotFound)
	if err != nil {
		return domain.DeleteResult{}, err
	}

	var result domain.DeleteResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := lockDocument(ctx, tx, docID)
		if err != nil {
			return err
		}
		if doc.Status == domain.DocumentStatusFinalized {
			return domain.ErrCannotDeleteFinalized
		}

		topics, err := loadTopics(ctx, tx, doc.ID, false)
		if err != nil {
			return err
		}
		topicIDs := make([]snowflake.ID, 0, len(topics))
		for _, t := range topics {
			topicIDs = append(topicIDs, t.ID)
		}

		affected, err := referencedTimeEntryIDs(ctx, tx, topicIDs)
		if err != nil {
			return err
		}

		if len(topicIDs) > 0 {
			if err := tx.Where("topic_id IN ?", topicIDs).Delete(&domain.LineItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("service_description_id = ?", doc.ID).Delete(&domain.Topic{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&domain.ServiceDescription{}, "id = ?", doc.ID).Error; err != nil {
			return err
		}

		cleared, err := s.reconciler.Reconcile(tx, affected)
		if err != nil {
			return err
		}
		result.ClearedWriteOffs = cleared
		return nil
	})
	if err != nil {
		return domain.DeleteResult{}, err
	}

	s.metrics.RecordDocumentDeleted()
	if result.ClearedWriteOffs > 0 {
		s.metrics.RecordWriteOffCleared(result.ClearedWriteOffs)
	}
	s.audit(ctx, "service_description.deleted", docID, map[string]any{
		"cleared_write_offs": result.ClearedWriteOffs,
	})
	return result, nil
}

func (s *Service) audit(ctx context.Context, action string, docID snowflake.ID, metadata map[string]any) {
	id := docID.String()
	if err := s.auditSvc.AuditLog(ctx, action, "service_description", &id, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func splitDiscount(d *billing.Discount) (*billing.DiscountType, *decimal.Decimal) {
	if d == nil {
		return nil, nil
	}
	t := d.Type
	v := d.Value
	return &t, &v
}

// validateRetainer enforces that fee and hours come and go together, with
// non-negative fee and positive hours. The overage rate needs hours to mean
// anything.
func validateRetainer(doc domain.ServiceDescription) error {
	fee, hours, rate := doc.RetainerFee, doc.RetainerHours, doc.RetainerOverageRate
	if (fee == nil) != (hours == nil) {
		return domain.ErrInvalidRetainer
	}
	if fee == nil {
		if rate != nil {
			return domain.ErrInvalidRetainer
		}
		return nil
	}
	if fee.IsNegative() || !hours.IsPositive() {
		return domain.ErrInvalidRetainer
	}
	if rate != nil && rate.IsNegative() {
		return domain.ErrInvalidRetainer
	}
	return nil
}
