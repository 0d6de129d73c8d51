package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanratchev/Veda-Legal-sub000/internal/billing"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/servicedesc/domain"
	timeentrydomain "github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry/domain"
)

func TestAddTopicAssignsDisplayOrder(t *testing.T) {
	env := newTestEnv(t)
	client := env.createClient(t, "acme")
	doc := env.createDraft(t, client.ID)
	ctx := context.Background()

	first, err := env.svc.AddTopic(ctx, doc.ID.String(), domain.TopicRequest{TopicName: "Litigation"})
	require.NoError(t, err)
	second, err := env.svc.AddTopic(ctx, doc.ID.String(), domain.TopicRequest{TopicName: "Contracts"})
	require.NoError(t, err)

	assert.Equal(t, 0, first.DisplayOrder)
	assert.Equal(t, 1, second.DisplayOrder)
	assert.Equal(t, billing.PricingModeHourly, first.PricingMode)
}

func TestAddTopicValidation(t *testing.T) {
	env := newTestEnv(t)
	client := env.createClient(t, "acme")
	doc := env.createDraft(t, client.ID)
	ctx := context.Background()

	_, err := env.svc.AddTopic(ctx, doc.ID.String(), domain.TopicRequest{TopicName: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyTopicName)

	_, err = env.svc.AddTopic(ctx, doc.ID.String(), domain.TopicRequest{
		TopicName:   "Bad",
		PricingMode: "SUBSCRIPTION",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPricing)

	// A cap only makes sense for hourly pricing.
	_, err = env.svc.AddTopic(ctx, doc.ID.String(), domain.TopicRequest{
		TopicName:   "Fixed",
		PricingMode: billing.PricingModeFixed,
		FixedFee:    decPtr(t, "500"),
		CapHours:    decPtr(t, "10"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPricing)

	_, err = env.svc.AddTopic(ctx, doc.ID.String(), domain.TopicRequest{
		TopicName: "Discounted",
		Discount:  &billing.Discount{Type: billing.DiscountTypePercentage, Value: dec(t, "150")},
	})
	assert.ErrorIs(t, err, billing.ErrDiscountTooLarge)
}

func TestUpdateTopicResolvesDiscountPatch(t *testing.T) {
	env := newTestEnv(t)
	client := env.createClient(t, "acme")
	doc := env.createDraft(t, client.ID)
	ctx := context.Background()

	topic, err := env.svc.AddTopic(ctx, doc.ID.String(), domain.TopicRequest{
		TopicName: "Litigation",
		Discount:  &billing.Discount{Type: billing.DiscountTypeAmount, Value: dec(t, "100")},
	})
	require.NoError(t, err)

	// Explicit null clears the topic discount.
	updated, err := env.svc.UpdateTopic(ctx, doc.ID.String(), topic.ID.String(), domain.UpdateTopicRequest{
		Discount: &billing.DiscountPatch{SetType: true},
	})
	require.NoError(t, err)
	assert.Nil(t, updated.DiscountType)
	assert.Nil(t, updated.DiscountValue)

	name := "Litigation & Appeals"
	updated, err = env.svc.UpdateTopic(ctx, doc.ID.String(), topic.ID.String(), domain.UpdateTopicRequest{
		TopicName: &name,
		CapHours:  decPtr(t, "40"),
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.TopicName)
	assert.True(t, updated.CapHours.Equal(dec(t, "40")))

	updated, err = env.svc.UpdateTopic(ctx, doc.ID.String(), topic.ID.String(), domain.UpdateTopicRequest{
		ClearCapHours: true,
	})
	require.NoError(t, err)
	assert.Nil(t, updated.CapHours)
}

func TestUpdateTopicUnknown(t *testing.T) {
	env := newTestEnv(t)
	client := env.createClient(t, "acme")
	doc := env.createDraft(t, client.ID)

	_, err := env.svc.UpdateTopic(context.Background(), doc.ID.String(), env.node.Generate().String(), domain.UpdateTopicRequest{})
	assert.ErrorIs(t, err, domain.ErrTopicNotFound)
}

func TestDeleteTopicReindexesAndReconciles(t *testing.T) {
	env := newTestEnv(t)
	client := env.createClient(t, "acme")
	entry := env.createTimeEntry(t, client.ID, 5, "3")
	doc := env.createDraft(t, client.ID)
	ctx := context.Background()

	first, err := env.svc.AddTopic(ctx, doc.ID.String(), domain.TopicRequest{TopicName: "A"})
	require.NoError(t, err)
	second, err := env.svc.AddTopic(ctx, doc.ID.String(), domain.TopicRequest{TopicName: "B"})
	require.NoError(t, err)
	third, err := env.svc.AddTopic(ctx, doc.ID.String(), domain.TopicRequest{TopicName: "C"})
	require.NoError(t, err)

	waived := billing.WaiveModeZero
	item := domain.LineItem{
		ID:          env.node.Generate(),
		TopicID:     second.ID,
		TimeEntryID: &entry.ID,
		Description: "case work",
		Hours:       decPtr(t, "3"),
		WaiveMode:   &waived,
	}
	require.NoError(t, env.db.Create(&item).Error)
	require.NoError(t, env.db.Model(&timeentrydomain.TimeEntry{}).
		Where("id = ?", entry.ID).
		Update("is_written_off", true).Error)

	result, err := env.svc.DeleteTopic(ctx, doc.ID.String(), second.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ClearedWriteOffs)

	var reloaded timeentrydomain.TimeEntry
	require.NoError(t, env.db.First(&reloaded, "id = ?", entry.ID).Error)
	assert.False(t, reloaded.IsWrittenOff)

	var remaining []domain.Topic
	require.NoError(t, env.db.
		Where("service_description_id = ?", doc.ID).
		Order("display_order ASC").
		Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, first.ID, remaining[0].ID)
	assert.Equal(t, 0, remaining[0].DisplayOrder)
	assert.Equal(t, third.ID, remaining[1].ID)
	assert.Equal(t, 1, remaining[1].DisplayOrder)
}

func TestReorderTopics(t *testing.T) {
	env := newTestEnv(t)
	client := env.createClient(t, "acme")
	doc := env.createDraft(t, client.ID)
	ctx := context.Background()

	a, err := env.svc.AddTopic(ctx, doc.ID.String(), domain.TopicRequest{TopicName: "A"})
	require.NoError(t, err)
	b, err := env.svc.AddTopic(ctx, doc.ID.String(), domain.TopicRequest{TopicName: "B"})
	require.NoError(t, err)

	reordered, err := env.svc.ReorderTopics(ctx, doc.ID.String(), domain.ReorderTopicsRequest{
		TopicIDs: []string{b.ID.String(), a.ID.String()},
	})
	require.NoError(t, err)
	require.Len(t, reordered, 2)
	assert.Equal(t, b.ID, reordered[0].ID)
	assert.Equal(t, 0, reordered[0].DisplayOrder)
	assert.Equal(t, a.ID, reordered[1].ID)
	assert.Equal(t, 1, reordered[1].DisplayOrder)

	// Missing a topic is a conflict.
	_, err = env.svc.ReorderTopics(ctx, doc.ID.String(), domain.ReorderTopicsRequest{
		TopicIDs: []string{b.ID.String()},
	})
	assert.ErrorIs(t, err, domain.ErrReorderConflict)

	// Duplicates too.
	_, err = env.svc.ReorderTopics(ctx, doc.ID.String(), domain.ReorderTopicsRequest{
		TopicIDs: []string{b.ID.String(), b.ID.String()},
	})
	assert.ErrorIs(t, err, domain.ErrReorderConflict)
}

func TestTopicMutationsRejectFinalized(t *testing.T) {
	env := newTestEnv(t)
	client := env.createClient(t, "acme")
	doc := env.createDraft(t, client.ID)
	ctx := context.Background()

	topic, err := env.svc.AddTopic(ctx, doc.ID.String(), domain.TopicRequest{TopicName: "A"})
	require.NoError(t, err)

	_, err = env.svc.UpdateStatus(ctx, doc.ID.String(), domain.UpdateStatusRequest{
		Status: domain.DocumentStatusFinalized,
	})
	require.NoError(t, err)

	_, err = env.svc.AddTopic(ctx, doc.ID.String(), domain.TopicRequest{TopicName: "B"})
	assert.ErrorIs(t, err, domain.ErrDocumentFinalized)

	_, err = env.svc.DeleteTopic(ctx, doc.ID.String(), topic.ID.String())
	assert.ErrorIs(t, err, domain.ErrDocumentFinalized)
}
