package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	clientdomain "github.com/stefanratchev/Veda-Legal-sub000/internal/client/domain"
	sddomain "github.com/stefanratchev/Veda-Legal-sub000/internal/servicedesc/domain"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry/domain"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB, clientdomain.Client) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&clientdomain.Client{},
		&domain.TimeEntry{},
		&sddomain.ServiceDescription{},
		&sddomain.Topic{},
		&sddomain.LineItem{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	client := clientdomain.Client{ID: node.Generate(), Name: "acme", Slug: "acme", Currency: "EUR"}
	require.NoError(t, db.Create(&client).Error)

	svc := NewService(ServiceParam{DB: db, Log: zap.NewNop(), GenID: node})
	return svc, db, client
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestCreateTimeEntry(t *testing.T) {
	svc, _, client := newTestService(t)
	ctx := context.Background()

	entry, err := svc.Create(ctx, domain.CreateRequest{
		ClientID:     client.ID.String(),
		EmployeeName: "M. Petrova",
		WorkDate:     time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
		Hours:        mustDecimal(t, "1.505"),
		Description:  "  contract review  ",
	})
	require.NoError(t, err)
	assert.False(t, entry.IsWrittenOff)
	assert.Equal(t, "contract review", entry.Description)
	// Hours are normalized to two decimal places on the way in.
	assert.True(t, entry.Hours.Equal(mustDecimal(t, "1.51")), "got %s", entry.Hours)

	got, err := svc.Get(ctx, entry.ID.String())
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
}

func TestCreateTimeEntryValidation(t *testing.T) {
	svc, _, client := newTestService(t)
	ctx := context.Background()
	workDate := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.Create(ctx, domain.CreateRequest{
		ClientID: "not-a-snowflake", EmployeeName: "M. Petrova", WorkDate: workDate,
		Hours: mustDecimal(t, "1"),
	})
	assert.ErrorIs(t, err, clientdomain.ErrNotFound)

	unknown := snowflake.ID(client.ID + 1)
	_, err = svc.Create(ctx, domain.CreateRequest{
		ClientID: unknown.String(), EmployeeName: "M. Petrova", WorkDate: workDate,
		Hours: mustDecimal(t, "1"),
	})
	assert.ErrorIs(t, err, clientdomain.ErrNotFound)

	_, err = svc.Create(ctx, domain.CreateRequest{
		ClientID: client.ID.String(), EmployeeName: "M. Petrova", WorkDate: workDate,
		Hours: mustDecimal(t, "0"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidHours)

	_, err = svc.Create(ctx, domain.CreateRequest{
		ClientID: client.ID.String(), EmployeeName: "  ", WorkDate: workDate,
		Hours: mustDecimal(t, "1"),
	})
	assert.ErrorIs(t, err, domain.ErrEmptyDescription)
}

func TestListFiltersByPeriod(t *testing.T) {
	svc, _, client := newTestService(t)
	ctx := context.Background()

	for _, day := range []int{5, 12, 25} {
		_, err := svc.Create(ctx, domain.CreateRequest{
			ClientID:     client.ID.String(),
			EmployeeName: "M. Petrova",
			WorkDate:     time.Date(2025, 2, day, 0, 0, 0, 0, time.UTC),
			Hours:        mustDecimal(t, "1"),
			Description:  "case work",
		})
		require.NoError(t, err)
	}

	from := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)
	clientID := client.ID.String()
	resp, err := svc.List(ctx, domain.ListRequest{ClientID: &clientID, From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, resp.TimeEntries, 1)
	assert.Equal(t, 12, resp.TimeEntries[0].WorkDate.Day())
}

func TestListUnbilledSkipsReferencedEntries(t *testing.T) {
	svc, db, client := newTestService(t)
	ctx := context.Background()

	billed, err := svc.Create(ctx, domain.CreateRequest{
		ClientID: client.ID.String(), EmployeeName: "M. Petrova",
		WorkDate: time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC),
		Hours:    mustDecimal(t, "1"), Description: "billed",
	})
	require.NoError(t, err)
	open, err := svc.Create(ctx, domain.CreateRequest{
		ClientID: client.ID.String(), EmployeeName: "M. Petrova",
		WorkDate: time.Date(2025, 2, 6, 0, 0, 0, 0, time.UTC),
		Hours:    mustDecimal(t, "1"), Description: "open",
	})
	require.NoError(t, err)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	doc := sddomain.ServiceDescription{
		ID: node.Generate(), ClientID: client.ID,
		PeriodStart: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		Status:      sddomain.DocumentStatusDraft, Currency: "EUR",
	}
	require.NoError(t, db.Create(&doc).Error)
	topic := sddomain.Topic{
		ID: node.Generate(), ServiceDescriptionID: doc.ID,
		TopicName: "General", PricingMode: "HOURLY",
	}
	require.NoError(t, db.Create(&topic).Error)
	billedID := billed.ID
	require.NoError(t, db.Create(&sddomain.LineItem{
		ID: node.Generate(), TopicID: topic.ID,
		TimeEntryID: &billedID, Description: "billed",
	}).Error)

	clientID := client.ID.String()
	resp, err := svc.List(ctx, domain.ListRequest{ClientID: &clientID, Unbilled: true})
	require.NoError(t, err)
	require.Len(t, resp.TimeEntries, 1)
	assert.Equal(t, open.ID, resp.TimeEntries[0].ID)
}
