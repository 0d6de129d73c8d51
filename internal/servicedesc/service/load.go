package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/stefanratchev/Veda-Legal-sub000/internal/servicedesc/domain"
	"github.com/stefanratchev/Veda-Legal-sub000/pkg/db"
)

func parseID(raw string, notFound error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil {
		return 0, notFound
	}
	return id, nil
}

// lockDocument loads a document for mutation, row-locked on dialects that
// support it.
func lockDocument(ctx context.Context, tx *gorm.DB, id snowflake.ID) (domain.ServiceDescription, error) {
	var doc domain.ServiceDescription
	err := db.ForUpdate(tx.WithContext(ctx)).
		Where("id = ?", id).
		First(&doc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ServiceDescription{}, domain.ErrNotFound
		}
		return domain.ServiceDescription{}, err
	}
	return doc, nil
}

// loadTopics returns the document's topics in display order, optionally with
// line items attached in display order.
func loadTopics(ctx context.Context, tx *gorm.DB, docID snowflake.ID, withItems bool) ([]domain.Topic, error) {
	var topics []domain.Topic
	q := tx.WithContext(ctx).
		Where("service_description_id = ?", docID).
		Order("display_order ASC, id ASC")
	if withItems {
		q = q.Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC, id ASC")
		}).Preload("LineItems.TimeEntry")
	}
	if err := q.Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

// lockTopic loads one topic scoped to its document.
func lockTopic(ctx context.Context, tx *gorm.DB, docID, topicID snowflake.ID) (domain.Topic, error) {
	var topic domain.Topic
	err := db.ForUpdate(tx.WithContext(ctx)).
		Where("id = ? AND service_description_id = ?", topicID, docID).
		First(&topic).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Topic{}, domain.ErrTopicNotFound
		}
		return domain.Topic{}, err
	}
	return topic, nil
}

// referencedTimeEntryIDs collects time entry ids referenced by line items in
// the given topics.
func referencedTimeEntryIDs(ctx context.Context, tx *gorm.DB, topicIDs []snowflake.ID) ([]snowflake.ID, error) {
	if len(topicIDs) == 0 {
		return nil, nil
	}
	var ids []snowflake.ID
	err := tx.WithContext(ctx).
		Model(&domain.LineItem{}).
		Where("topic_id IN ? AND time_entry_id IS NOT NULL", topicIDs).
		Pluck("time_entry_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// reindexTopics rewrites display_order dense and 0-based following the
// current order of the remaining topics.
func reindexTopics(ctx context.Context, tx *gorm.DB, docID snowflake.ID) error {
	topics, err := loadTopics(ctx, tx, docID, false)
	if err != nil {
		return err
	}
	for i, t := range topics {
		if t.DisplayOrder == i {
			continue
		}
		if err := tx.WithContext(ctx).
			Model(&domain.Topic{}).
			Where("id = ?", t.ID).
			Update("display_order", i).Error; err != nil {
			return err
		}
	}
	return nil
}
