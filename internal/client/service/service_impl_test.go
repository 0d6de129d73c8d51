package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stefanratchev/Veda-Legal-sub000/internal/client/domain"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/config"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Client{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	holder, err := config.NewBillingDefaultsHolder()
	require.NoError(t, err)

	return NewService(ServiceParam{DB: db, Log: zap.NewNop(), GenID: node, Defaults: holder})
}

func TestCreateClientBuildsSlug(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	client, err := svc.Create(ctx, domain.CreateRequest{Name: "Varga Söhne GmbH"})
	require.NoError(t, err)
	assert.Equal(t, "varga-sohne-gmbh", client.Slug)
	assert.NotEmpty(t, client.Currency)

	got, err := svc.GetBySlug(ctx, "varga-sohne-gmbh")
	require.NoError(t, err)
	assert.Equal(t, client.ID, got.ID)
}

func TestCreateClientRejectsDuplicateSlug(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{Name: "Acme Corp", Currency: "usd"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "acme CORP"})
	assert.ErrorIs(t, err, domain.ErrDuplicateSlug)
}

func TestCreateClientValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyName)
}

func TestCreateClientNormalizesCurrency(t *testing.T) {
	svc := newTestService(t)

	client, err := svc.Create(context.Background(), domain.CreateRequest{Name: "Acme", Currency: " usd "})
	require.NoError(t, err)
	assert.Equal(t, "USD", client.Currency)
}

func TestGetUnknownClient(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	_, err = svc.Get(ctx, node.Generate().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListClientsSortsByName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Zeta", "Alpha", "Mid"} {
		_, err := svc.Create(ctx, domain.CreateRequest{Name: name})
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, resp.Clients, 3)
	assert.Equal(t, "Alpha", resp.Clients[0].Name)
	assert.Equal(t, "Zeta", resp.Clients[2].Name)
}
