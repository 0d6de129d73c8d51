package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	clientdomain "github.com/stefanratchev/Veda-Legal-sub000/internal/client/domain"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/config"
	"github.com/stefanratchev/Veda-Legal-sub000/pkg/db"
	"github.com/stefanratchev/Veda-Legal-sub000/pkg/db/option"
	"github.com/stefanratchev/Veda-Legal-sub000/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Defaults *config.BillingDefaultsHolder
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clientrepo repository.Repository[clientdomain.Client]
	defaults   *config.BillingDefaultsHolder
}

func NewService(p ServiceParam) clientdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("client.service"),
		genID: p.GenID,

		clientrepo: repository.ProvideStore[clientdomain.Client](p.DB),
		defaults:   p.Defaults,
	}
}

func (s *Service) Create(ctx context.Context, req clientdomain.CreateRequest) (clientdomain.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return clientdomain.Client{}, clientdomain.ErrEmptyName
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaults.Get().Currency
	}

	client := clientdomain.Client{
		ID:       s.genID.Generate(),
		Name:     name,
		Slug:     slug.Make(name),
		Currency: currency,
	}
	if err := s.clientrepo.Create(ctx, &client); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return clientdomain.Client{}, clientdomain.ErrDuplicateSlug
		}
		return clientdomain.Client{}, err
	}
	return client, nil
}

func (s *Service) Get(ctx context.Context, id string) (clientdomain.Client, error) {
	clientID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return clientdomain.Client{}, clientdomain.ErrNotFound
	}
	client, err := s.clientrepo.FindOne(ctx, &clientdomain.Client{ID: clientID})
	if err != nil {
		return clientdomain.Client{}, err
	}
	if client == nil {
		return clientdomain.Client{}, clientdomain.ErrNotFound
	}
	return *client, nil
}

func (s *Service) GetBySlug(ctx context.Context, clientSlug string) (clientdomain.Client, error) {
	client, err := s.clientrepo.FindOne(ctx, &clientdomain.Client{Slug: strings.TrimSpace(clientSlug)})
	if err != nil {
		return clientdomain.Client{}, err
	}
	if client == nil {
		return clientdomain.Client{}, clientdomain.ErrNotFound
	}
	return *client, nil
}

func (s *Service) List(ctx context.Context) (clientdomain.ListResponse, error) {
	items, err := s.clientrepo.Find(ctx, &clientdomain.Client{},
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"name": true}, Column: "name"}),
	)
	if err != nil {
		return clientdomain.ListResponse{}, err
	}

	clients := make([]clientdomain.Client, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		clients = append(clients, *item)
	}
	return clientdomain.ListResponse{Clients: clients}, nil
}
