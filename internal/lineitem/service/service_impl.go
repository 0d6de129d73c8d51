package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/stefanratchev/Veda-Legal-sub000/internal/audit/domain"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/clock"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/lineitem/domain"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/observability/metrics"
	sddomain "github.com/stefanratchev/Veda-Legal-sub000/internal/servicedesc/domain"
	timeentrydomain "github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry/domain"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry/writeoff"
	"github.com/stefanratchev/Veda-Legal-sub000/pkg/db"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Reconciler *writeoff.Reconciler
	Metrics    *metrics.Metrics
	AuditSvc   auditdomain.Service
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clock      clock.Clock
	reconciler *writeoff.Reconciler
	metrics    *metrics.Metrics
	auditSvc   auditdomain.Service
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("lineitem.service"),
		genID: p.GenID,

		clock:      p.Clock,
		reconciler: p.Reconciler,
		metrics:    p.Metrics,
		auditSvc:   p.AuditSvc,
	}
}

func (s *Service) Add(ctx context.Context, docID string, req domain.AddRequest) (sddomain.LineItem, error) {
	id, err := parseID(docID, sddomain.ErrNotFound)
	if err != nil {
		return sddomain.LineItem{}, err
	}
	topicID, err := parseID(req.TopicID, sddomain.ErrTopicNotFound)
	if err != nil {
		return sddomain.LineItem{}, err
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return sddomain.LineItem{}, domain.ErrEmptyDescription
	}
	if req.Hours != nil && !req.Hours.IsPositive() {
		return sddomain.LineItem{}, domain.ErrInvalidHours
	}
	if req.FixedAmount != nil && req.FixedAmount.IsNegative() {
		return sddomain.LineItem{}, domain.ErrInvalidAmount
	}

	var item sddomain.LineItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := lockDocument(ctx, tx, id)
		if err != nil {
			return err
		}
		if doc.Status == sddomain.DocumentStatusFinalized {
			return sddomain.ErrDocumentFinalized
		}

		topic, err := findTopic(ctx, tx, doc.ID, topicID)
		if err != nil {
			return err
		}

		var entryID *snowflake.ID
		if req.TimeEntryID != nil {
			parsed, err := parseID(*req.TimeEntryID, domain.ErrTimeEntryMismatch)
			if err != nil {
				return err
			}
			var entry timeentrydomain.TimeEntry
			if err := tx.WithContext(ctx).Where("id = ?", parsed).First(&entry).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return domain.ErrTimeEntryMismatch
				}
				return err
			}
			if entry.ClientID != doc.ClientID {
				return domain.ErrTimeEntryMismatch
			}
			entryID = &parsed
		}

		var count int64
		if err := tx.Model(&sddomain.LineItem{}).
			Where("topic_id = ?", topic.ID).
			Count(&count).Error; err != nil {
			return err
		}

		item = sddomain.LineItem{
			ID:           s.genID.Generate(),
			TopicID:      topic.ID,
			TimeEntryID:  entryID,
			Date:         req.Date,
			Description:  description,
			Hours:        req.Hours,
			FixedAmount:  req.FixedAmount,
			DisplayOrder: int(count),
			CreatedAt:    s.clock.Now(),
			UpdatedAt:    s.clock.Now(),
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return sddomain.LineItem{}, err
	}

	s.audit(ctx, "line_item.added", item.ID)
	return item, nil
}

func (s *Service) Update(ctx context.Context, docID, itemID string, req domain.UpdateRequest) (sddomain.LineItem, error) {
	id, err := parseID(docID, sddomain.ErrNotFound)
	if err != nil {
		return sddomain.LineItem{}, err
	}
	iid, err := parseID(itemID, domain.ErrItemNotFound)
	if err != nil {
		return sddomain.LineItem{}, err
	}

	var item sddomain.LineItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := lockDocument(ctx, tx, id)
		if err != nil {
			return err
		}
		if doc.Status == sddomain.DocumentStatusFinalized {
			return sddomain.ErrDocumentFinalized
		}

		item, err = findItem(ctx, tx, doc.ID, iid)
		if err != nil {
			return err
		}

		sourceTopicID := item.TopicID
		if req.TopicID != nil {
			targetID, err := parseID(*req.TopicID, sddomain.ErrTopicNotFound)
			if err != nil {
				return err
			}
			if targetID != item.TopicID {
				target, err := findTopic(ctx, tx, doc.ID, targetID)
				if err != nil {
					return err
				}
				var count int64
				if err := tx.Model(&sddomain.LineItem{}).
					Where("topic_id = ?", target.ID).
					Count(&count).Error; err != nil {
					return err
				}
				insertAt := int(count)
				if req.DisplayOrder != nil {
					insertAt = *req.DisplayOrder
					if insertAt < 0 {
						insertAt = 0
					}
					if insertAt > int(count) {
						insertAt = int(count)
					}
				}
				if insertAt < int(count) {
					if err := tx.Model(&sddomain.LineItem{}).
						Where("topic_id = ? AND display_order >= ?", target.ID, insertAt).
						UpdateColumn("display_order", gorm.Expr("display_order + 1")).Error; err != nil {
						return err
					}
				}
				item.TopicID = target.ID
				item.DisplayOrder = insertAt
			}
		}

		if req.Description != nil {
			description := strings.TrimSpace(*req.Description)
			if description == "" {
				return domain.ErrEmptyDescription
			}
			item.Description = description
		}
		if req.Date != nil {
			item.Date = req.Date
		}
		if req.ClearDate {
			item.Date = nil
		}
		if req.Hours != nil {
			if !req.Hours.IsPositive() {
				return domain.ErrInvalidHours
			}
			item.Hours = req.Hours
		}
		if req.ClearHours {
			item.Hours = nil
		}
		if req.FixedAmount != nil {
			if req.FixedAmount.IsNegative() {
				return domain.ErrInvalidAmount
			}
			item.FixedAmount = req.FixedAmount
		}
		if req.ClearFixedAmount {
			item.FixedAmount = nil
		}
		item.UpdatedAt = s.clock.Now()

		if err := tx.Model(&sddomain.LineItem{}).
			Where("id = ?", item.ID).
			Updates(map[string]any{
				"topic_id":      item.TopicID,
				"date":          item.Date,
				"description":   item.Description,
				"hours":         item.Hours,
				"fixed_amount":  item.FixedAmount,
				"display_order": item.DisplayOrder,
				"updated_at":    item.UpdatedAt,
			}).Error; err != nil {
			return err
		}

		if item.TopicID != sourceTopicID {
			return reindexItems(ctx, tx, sourceTopicID)
		}
		return nil
	})
	if err != nil {
		return sddomain.LineItem{}, err
	}

	s.audit(ctx, "line_item.updated", item.ID)
	return item, nil
}

func (s *Service) Waive(ctx context.Context, docID, itemID string, req domain.WaiveRequest) (domain.MutationResult, error) {
	id, err := parseID(docID, sddomain.ErrNotFound)
	if err != nil {
		return domain.MutationResult{}, err
	}
	iid, err := parseID(itemID, domain.ErrItemNotFound)
	if err != nil {
		return domain.MutationResult{}, err
	}
	if req.Mode != nil && !req.Mode.Valid() {
		return domain.MutationResult{}, domain.ErrInvalidWaiveMode
	}

	var result domain.MutationResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := lockDocument(ctx, tx, id)
		if err != nil {
			return err
		}
		if doc.Status == sddomain.DocumentStatusFinalized {
			return sddomain.ErrDocumentFinalized
		}

		item, err := findItem(ctx, tx, doc.ID, iid)
		if err != nil {
			return err
		}

		item.WaiveMode = req.Mode
		item.UpdatedAt = s.clock.Now()
		if err := tx.Model(&sddomain.LineItem{}).
			Where("id = ?", item.ID).
			Updates(map[string]any{
				"waive_mode": item.WaiveMode,
				"updated_at": item.UpdatedAt,
			}).Error; err != nil {
			return err
		}

		result.Item = item
		if item.TimeEntryID != nil {
			cleared, err := s.reconciler.Reconcile(tx, []snowflake.ID{*item.TimeEntryID})
			if err != nil {
				return err
			}
			result.ClearedWriteOffs = cleared
		}
		return nil
	})
	if err != nil {
		return domain.MutationResult{}, err
	}

	mode := "restored"
	if req.Mode != nil {
		mode = string(*req.Mode)
	}
	s.metrics.RecordItemWaived(mode)
	if result.ClearedWriteOffs > 0 {
		s.metrics.RecordWriteOffCleared(result.ClearedWriteOffs)
	}
	s.audit(ctx, "line_item.waived", result.Item.ID)
	return result, nil
}

func (s *Service) Delete(ctx context.Context, docID, itemID string) (domain.DeleteResult, error) {
	id, err := parseID(docID, sddomain.ErrNotFound)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	iid, err := parseID(itemID, domain.ErrItemNotFound)
	if err != nil {
		return domain.DeleteResult{}, err
	}

	var result domain.DeleteResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := lockDocument(ctx, tx, id)
		if err != nil {
			return err
		}
		if doc.Status == sddomain.DocumentStatusFinalized {
			return sddomain.ErrDocumentFinalized
		}

		item, err := findItem(ctx, tx, doc.ID, iid)
		if err != nil {
			return err
		}

		if err := tx.Delete(&sddomain.LineItem{}, "id = ?", item.ID).Error; err != nil {
			return err
		}
		if err := reindexItems(ctx, tx, item.TopicID); err != nil {
			return err
		}

		if item.TimeEntryID != nil {
			cleared, err := s.reconciler.Reconcile(tx, []snowflake.ID{*item.TimeEntryID})
			if err != nil {
				return err
			}
			result.ClearedWriteOffs = cleared
		}
		return nil
	})
	if err != nil {
		return domain.DeleteResult{}, err
	}

	if result.ClearedWriteOffs > 0 {
		s.metrics.RecordWriteOffCleared(result.ClearedWriteOffs)
	}
	s.audit(ctx, "line_item.deleted", iid)
	return result, nil
}

func (s *Service) Reorder(ctx context.Context, docID, topicID string, req domain.ReorderRequest) ([]sddomain.LineItem, error) {
	id, err := parseID(docID, sddomain.ErrNotFound)
	if err != nil {
		return nil, err
	}
	tid, err := parseID(topicID, sddomain.ErrTopicNotFound)
	if err != nil {
		return nil, err
	}

	requested := make([]snowflake.ID, 0, len(req.ItemIDs))
	for _, raw := range req.ItemIDs {
		iid, err := parseID(raw, domain.ErrReorderConflict)
		if err != nil {
			return nil, err
		}
		requested = append(requested, iid)
	}

	var items []sddomain.LineItem
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := lockDocument(ctx, tx, id)
		if err != nil {
			return err
		}
		if doc.Status == sddomain.DocumentStatusFinalized {
			return sddomain.ErrDocumentFinalized
		}

		topic, err := findTopic(ctx, tx, doc.ID, tid)
		if err != nil {
			return err
		}

		var existing []sddomain.LineItem
		if err := tx.WithContext(ctx).
			Where("topic_id = ?", topic.ID).
			Order("display_order ASC, id ASC").
			Find(&existing).Error; err != nil {
			return err
		}
		if !isPermutation(requested, existing) {
			return domain.ErrReorderConflict
		}

		byID := make(map[snowflake.ID]sddomain.LineItem, len(existing))
		for _, it := range existing {
			byID[it.ID] = it
		}

		items = make([]sddomain.LineItem, 0, len(requested))
		for i, iid := range requested {
			it := byID[iid]
			if it.DisplayOrder != i {
				if err := tx.Model(&sddomain.LineItem{}).
					Where("id = ?", it.ID).
					Update("display_order", i).Error; err != nil {
					return err
				}
				it.DisplayOrder = i
			}
			items = append(items, it)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "line_item.reordered", tid)
	return items, nil
}

func (s *Service) audit(ctx context.Context, action string, targetID snowflake.ID) {
	id := targetID.String()
	if err := s.auditSvc.AuditLog(ctx, action, "line_item", &id, nil); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func parseID(raw string, notFound error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, notFound
	}
	return id, nil
}

func lockDocument(ctx context.Context, tx *gorm.DB, id snowflake.ID) (sddomain.ServiceDescription, error) {
	var doc sddomain.ServiceDescription
	err := db.ForUpdate(tx.WithContext(ctx)).
		Where("id = ?", id).
		First(&doc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return sddomain.ServiceDescription{}, sddomain.ErrNotFound
		}
		return sddomain.ServiceDescription{}, err
	}
	return doc, nil
}

func findTopic(ctx context.Context, tx *gorm.DB, docID, topicID snowflake.ID) (sddomain.Topic, error) {
	var topic sddomain.Topic
	err := tx.WithContext(ctx).
		Where("id = ? AND service_description_id = ?", topicID, docID).
		First(&topic).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return sddomain.Topic{}, sddomain.ErrTopicNotFound
		}
		return sddomain.Topic{}, err
	}
	return topic, nil
}

// findItem loads an item scoped to the document through its topic.
func findItem(ctx context.Context, tx *gorm.DB, docID, itemID snowflake.ID) (sddomain.LineItem, error) {
	var item sddomain.LineItem
	err := tx.WithContext(ctx).
		Joins("JOIN topics ON topics.id = line_items.topic_id").
		Where("line_items.id = ? AND topics.service_description_id = ?", itemID, docID).
		First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return sddomain.LineItem{}, domain.ErrItemNotFound
		}
		return sddomain.LineItem{}, err
	}
	return item, nil
}

// reindexItems rewrites display_order dense and 0-based inside one topic.
func reindexItems(ctx context.Context, tx *gorm.DB, topicID snowflake.ID) error {
	var items []sddomain.LineItem
	if err := tx.WithContext(ctx).
		Where("topic_id = ?", topicID).
		Order("display_order ASC, id ASC").
		Find(&items).Error; err != nil {
		return err
	}
	for i, it := range items {
		if it.DisplayOrder == i {
			continue
		}
		if err := tx.Model(&sddomain.LineItem{}).
			Where("id = ?", it.ID).
			Update("display_order", i).Error; err != nil {
			return err
		}
	}
	return nil
}

func isPermutation(requested []snowflake.ID, existing []sddomain.LineItem) bool {
	if len(requested) != len(existing) {
		return false
	}
	seen := make(map[snowflake.ID]bool, len(existing))
	for _, it := range existing {
		seen[it.ID] = false
	}
	for _, id := range requested {
		used, ok := seen[id]
		if !ok || used {
			return false
		}
		seen[id] = true
	}
	return true
}
