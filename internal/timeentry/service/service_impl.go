package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stefanratchev/Veda-Legal-sub000/internal/billing"
	clientdomain "github.com/stefanratchev/Veda-Legal-sub000/internal/client/domain"
	timeentrydomain "github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry/domain"
	"github.com/stefanratchev/Veda-Legal-sub000/pkg/db/option"
	"github.com/stefanratchev/Veda-Legal-sub000/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	entryrepo  repository.Repository[timeentrydomain.TimeEntry]
	clientrepo repository.Repository[clientdomain.Client]
}

func NewService(p ServiceParam) timeentrydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("timeentry.service"),
		genID: p.GenID,

		entryrepo:  repository.ProvideStore[timeentrydomain.TimeEntry](p.DB),
		clientrepo: repository.ProvideStore[clientdomain.Client](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req timeentrydomain.CreateRequest) (timeentrydomain.TimeEntry, error) {
	clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
	if err != nil {
		return timeentrydomain.TimeEntry{}, clientdomain.ErrNotFound
	}
	if strings.TrimSpace(req.EmployeeName) == "" {
		return timeentrydomain.TimeEntry{}, timeentrydomain.ErrEmptyDescription
	}
	if !req.Hours.IsPositive() {
		return timeentrydomain.TimeEntry{}, timeentrydomain.ErrInvalidHours
	}

	client, err := s.clientrepo.FindOne(ctx, &clientdomain.Client{ID: clientID})
	if err != nil {
		return timeentrydomain.TimeEntry{}, err
	}
	if client == nil {
		return timeentrydomain.TimeEntry{}, clientdomain.ErrNotFound
	}

	entry := timeentrydomain.TimeEntry{
		ID:           s.genID.Generate(),
		ClientID:     clientID,
		EmployeeName: strings.TrimSpace(req.EmployeeName),
		WorkDate:     req.WorkDate,
		Hours:        billing.RoundHours(req.Hours),
		Description:  strings.TrimSpace(req.Description),
	}
	if err := s.entryrepo.Create(ctx, &entry); err != nil {
		return timeentrydomain.TimeEntry{}, err
	}
	return entry, nil
}

func (s *Service) Get(ctx context.Context, id string) (timeentrydomain.TimeEntry, error) {
	entryID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return timeentrydomain.TimeEntry{}, timeentrydomain.ErrNotFound
	}
	entry, err := s.entryrepo.FindOne(ctx, &timeentrydomain.TimeEntry{ID: entryID})
	if err != nil {
		return timeentrydomain.TimeEntry{}, err
	}
	if entry == nil {
		return timeentrydomain.TimeEntry{}, timeentrydomain.ErrNotFound
	}
	return *entry, nil
}

func (s *Service) List(ctx context.Context, req timeentrydomain.ListRequest) (timeentrydomain.ListResponse, error) {
	if req.Unbilled {
		return s.listUnbilled(ctx, req)
	}

	filter := &timeentrydomain.TimeEntry{}
	if req.ClientID != nil {
		clientID, err := snowflake.ParseString(strings.TrimSpace(*req.ClientID))
		if err != nil {
			return timeentrydomain.ListResponse{}, clientdomain.ErrNotFound
		}
		filter.ClientID = clientID
	}

	options := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"work_date": true}, Column: "work_date"}),
	}
	if req.From != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "work_date",
			Operator: option.GTE,
			Value:    *req.From,
		}))
	}
	if req.To != nil {
		options = append(options, option.ApplyOperator(option.Condition{
			Field:    "work_date",
			Operator: option.LTE,
			Value:    *req.To,
		}))
	}

	items, err := s.entryrepo.Find(ctx, filter, options...)
	if err != nil {
		return timeentrydomain.ListResponse{}, err
	}

	entries := make([]timeentrydomain.TimeEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}
	return timeentrydomain.ListResponse{TimeEntries: entries}, nil
}

// listUnbilled keeps entries no line item references yet. The subquery makes
// the repository filters awkward, so it goes through gorm directly.
func (s *Service) listUnbilled(ctx context.Context, req timeentrydomain.ListRequest) (timeentrydomain.ListResponse, error) {
	q := s.db.WithContext(ctx).Model(&timeentrydomain.TimeEntry{}).
		Where("NOT EXISTS (SELECT 1 FROM line_items WHERE line_items.time_entry_id = time_entries.id)")

	if req.ClientID != nil {
		clientID, err := snowflake.ParseString(strings.TrimSpace(*req.ClientID))
		if err != nil {
			return timeentrydomain.ListResponse{}, clientdomain.ErrNotFound
		}
		q = q.Where("client_id = ?", clientID)
	}
	if req.From != nil {
		q = q.Where("work_date >= ?", *req.From)
	}
	if req.To != nil {
		q = q.Where("work_date <= ?", *req.To)
	}

	var entries []timeentrydomain.TimeEntry
	if err := q.Order("work_date ASC, id ASC").Find(&entries).Error; err != nil {
		return timeentrydomain.ListResponse{}, err
	}
	return timeentrydomain.ListResponse{TimeEntries: entries}, nil
}
