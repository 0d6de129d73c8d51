package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stefanratchev/Veda-Legal-sub000/internal/billing"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/servicedesc/domain"
)

func (s *Service) AddTopic(ctx context.Context, docID string, req domain.TopicRequest) (domain.Topic, error) {
	id, err := parseID(docID, domain.ErrNotFound)
	if err != nil {
		return domain.Topic{}, err
	}

	name := strings.TrimSpace(req.TopicName)
	if name == "" {
		return domain.Topic{}, domain.ErrEmptyTopicName
	}

	mode := req.PricingMode
	if mode == "" {
		mode = billing.PricingModeHourly
	}
	if !mode.Valid() {
		return domain.Topic{}, domain.ErrInvalidPricing
	}
	if err := validateTopicAmounts(mode, req.HourlyRate, req.FixedFee, req.CapHours); err != nil {
		return domain.Topic{}, err
	}
	if req.Discount != nil {
		if err := billing.ValidateDiscount(req.Discount.Type, req.Discount.Value); err != nil {
			return domain.Topic{}, err
		}
	}

	var topic domain.Topic
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := lockDocument(ctx, tx, id)
		if err != nil {
			return err
		}
		if doc.Status == domain.DocumentStatusFinalized {
			return domain.ErrDocumentFinalized
		}

		var count int64
		if err := tx.Model(&domain.Topic{}).
			Where("service_description_id = ?", doc.ID).
			Count(&count).Error; err != nil {
			return err
		}

		topic = domain.Topic{
			ID:                   s.genID.Generate(),
			ServiceDescriptionID: doc.ID,
			TopicName:            name,
			DisplayOrder:         int(count),
			PricingMode:          mode,
			HourlyRate:           req.HourlyRate,
			FixedFee:             req.FixedFee,
			CapHours:             req.CapHours,
			CreatedAt:            s.clock.Now(),
			UpdatedAt:            s.clock.Now(),
		}
		if req.Discount != nil {
			topic.DiscountType, topic.DiscountValue = splitDiscount(req.Discount)
		}
		return tx.Create(&topic).Error
	})
	if err != nil {
		return domain.Topic{}, err
	}

	s.audit(ctx, "topic.added", id, map[string]any{"topic_id": topic.ID.String()})
	return topic, nil
}

func (s *Service) UpdateTopic(ctx context.Context, docID, topicID string, req domain.UpdateTopicRequest) (domain.Topic, error) {
	id, err := parseID(docID, domain.ErrNotFound)
	if err != nil {
		return domain.Topic{}, err
	}
	tid, err := parseID(topicID, domain.ErrTopicNotFound)
	if err != nil {
		return domain.Topic{}, err
	}

	var topic domain.Topic
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := lockDocument(ctx, tx, id)
		if err != nil {
			return err
		}
		if doc.Status == domain.DocumentStatusFinalized {
			return domain.ErrDocumentFinalized
		}

		topic, err = lockTopic(ctx, tx, doc.ID, tid)
		if err != nil {
			return err
		}

		if req.TopicName != nil {
			name := strings.TrimSpace(*req.TopicName)
			if name == "" {
				return domain.ErrEmptyTopicName
			}
			topic.TopicName = name
		}
		if req.PricingMode != nil {
			if !req.PricingMode.Valid() {
				return domain.ErrInvalidPricing
			}
			topic.PricingMode = *req.PricingMode
		}
		if req.HourlyRate != nil {
			topic.HourlyRate = req.HourlyRate
		}
		if req.FixedFee != nil {
			topic.FixedFee = req.FixedFee
		}
		if req.CapHours != nil {
			topic.CapHours = req.CapHours
		}
		if req.ClearCapHours {
			topic.CapHours = nil
		}
		if err := validateTopicAmounts(topic.PricingMode, topic.HourlyRate, topic.FixedFee, topic.CapHours); err != nil {
			return err
		}
		if req.Discount != nil {
			resolved, err := billing.ResolveDiscount(topic.Discount(), *req.Discount)
			if err != nil {
				return err
			}
			topic.DiscountType, topic.DiscountValue = splitDiscount(resolved)
		}
		topic.UpdatedAt = s.clock.Now()

		return tx.Model(&domain.Topic{}).
			Where("id = ?", topic.ID).
			Updates(map[string]any{
				"topic_name":     topic.TopicName,
				"pricing_mode":   topic.PricingMode,
				"hourly_rate":    topic.HourlyRate,
				"fixed_fee":      topic.FixedFee,
				"cap_hours":      topic.CapHours,
				"discount_type":  topic.DiscountType,
				"discount_value": topic.DiscountValue,
				"updated_at":     topic.UpdatedAt,
			}).Error
	})
	if err != nil {
		return domain.Topic{}, err
	}

	s.audit(ctx, "topic.updated", id, map[string]any{"topic_id": topic.ID.String()})
	return topic, nil
}

func (s *Service) DeleteTopic(ctx context.Context, docID, topicID string) (domain.DeleteResult, error) {
	id, err := parseID(docID, domain.ErrNotFound)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	tid, err := parseID(topicID, domain.ErrTopicNotFound)
	if err != nil {
		return domain.DeleteResult{}, err
	}

	var result domain.DeleteResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := lockDocument(ctx, tx, id)
		if err != nil {
			return err
		}
		if doc.Status == domain.DocumentStatusFinalized {
			return domain.ErrDocumentFinalized
		}

		topic, err := lockTopic(ctx, tx, doc.ID, tid)
		if err != nil {
			return err
		}

		affected, err := referencedTimeEntryIDs(ctx, tx, []snowflake.ID{topic.ID})
		if err != nil {
			return err
		}

		if err := tx.Where("topic_id = ?", topic.ID).Delete(&domain.LineItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.Topic{}, "id = ?", topic.ID).Error; err != nil {
			return err
		}
		if err := reindexTopics(ctx, tx, doc.ID); err != nil {
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

	if result.ClearedWriteOffs > 0 {
		s.metrics.RecordWriteOffCleared(result.ClearedWriteOffs)
	}
	s.audit(ctx, "topic.deleted", id, map[string]any{
		"topic_id":           tid.String(),
		"cleared_write_offs": result.ClearedWriteOffs,
	})
	return result, nil
}

func (s *Service) ReorderTopics(ctx context.Context, docID string, req domain.ReorderTopicsRequest) ([]domain.Topic, error) {
	id, err := parseID(docID, domain.ErrNotFound)
	if err != nil {
		return nil, err
	}

	requested := make([]snowflake.ID, 0, len(req.TopicIDs))
	for _, raw := range req.TopicIDs {
		tid, err := parseID(raw, domain.ErrReorderConflict)
		if err != nil {
			return nil, err
		}
		requested = append(requested, tid)
	}

	var topics []domain.Topic
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := lockDocument(ctx, tx, id)
		if err != nil {
			return err
		}
		if doc.Status == domain.DocumentStatusFinalized {
			return domain.ErrDocumentFinalized
		}

		existing, err := loadTopics(ctx, tx, doc.ID, false)
		if err != nil {
			return err
		}
		if !isPermutation(requested, existing) {
			return domain.ErrReorderConflict
		}

		byID := make(map[snowflake.ID]domain.Topic, len(existing))
		for _, t := range existing {
			byID[t.ID] = t
		}

		topics = make([]domain.Topic, 0, len(requested))
		for i, tid := range requested {
			t := byID[tid]
			if t.DisplayOrder != i {
				if err := tx.Model(&domain.Topic{}).
					Where("id = ?", t.ID).
					Update("display_order", i).Error; err != nil {
					return err
				}
				t.DisplayOrder = i
			}
			topics = append(topics, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "topic.reordered", id, nil)
	return topics, nil
}

// isPermutation reports whether requested covers exactly the existing topic
// ids, each once.
func isPermutation(requested []snowflake.ID, existing []domain.Topic) bool {
	if len(requested) != len(existing) {
		return false
	}
	seen := make(map[snowflake.ID]bool, len(existing))
	for _, t := range existing {
		seen[t.ID] = false
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

// validateTopicAmounts rejects negative rates and non-positive caps. The cap
// only applies to hourly pricing.
func validateTopicAmounts(mode billing.PricingMode, hourlyRate, fixedFee, capHours *decimal.Decimal) error {
	if hourlyRate != nil && hourlyRate.IsNegative() {
		return domain.ErrInvalidPricing
	}
	if fixedFee != nil && fixedFee.IsNegative() {
		return domain.ErrInvalidPricing
	}
	if capHours != nil {
		if mode != billing.PricingModeHourly {
			return domain.ErrInvalidPricing
		}
		if !capHours.IsPositive() {
			return domain.ErrInvalidPricing
		}
	}
	return nil
}
