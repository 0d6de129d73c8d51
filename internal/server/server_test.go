package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/stefanratchev/Veda-Legal-sub000/internal/audit/domain"
	auditrepository "github.com/stefanratchev/Veda-Legal-sub000/internal/audit/repository"
	auditservice "github.com/stefanratchev/Veda-Legal-sub000/internal/audit/service"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/authorization"
	clientdomain "github.com/stefanratchev/Veda-Legal-sub000/internal/client/domain"
	clientservice "github.com/stefanratchev/Veda-Legal-sub000/internal/client/service"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/clock"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/config"
	lineitemservice "github.com/stefanratchev/Veda-Legal-sub000/internal/lineitem/service"
	sddomain "github.com/stefanratchev/Veda-Legal-sub000/internal/servicedesc/domain"
	sdservice "github.com/stefanratchev/Veda-Legal-sub000/internal/servicedesc/service"
	timeentrydomain "github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry/domain"
	timeentryservice "github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry/service"
	"github.com/stefanratchev/Veda-Legal-sub000/internal/timeentry/writeoff"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&clientdomain.Client{},
		&timeentrydomain.TimeEntry{},
		&sddomain.ServiceDescription{},
		&sddomain.Topic{},
		&sddomain.LineItem{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	fakeClock := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	holder, err := config.NewBillingDefaultsHolder()
	require.NoError(t, err)
	reconciler := writeoff.NewReconciler(log)

	auditSvc := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: auditrepository.Provide(),
	})

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)
	authzSvc := authorization.NewService(authorization.Params{
		DB: db, Log: log, Enforcer: enforcer, AuditSvc: auditSvc,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	return NewServer(ServerParams{
		Gin:      engine,
		Cfg:      config.Config{},
		DB:       db,
		GenID:    node,
		AuthzSvc: authzSvc,
		AuditSvc: auditSvc,
		ClientSvc: clientservice.NewService(clientservice.ServiceParam{
			DB: db, Log: log, GenID: node, Defaults: holder,
		}),
		TimeEntrySvc: timeentryservice.NewService(timeentryservice.ServiceParam{
			DB: db, Log: log, GenID: node,
		}),
		ServiceDescSvc: sdservice.NewService(sdservice.ServiceParam{
			DB: db, Log: log, GenID: node, Clock: fakeClock,
			Defaults: holder, Reconciler: reconciler, AuditSvc: auditSvc,
		}),
		LineItemSvc: lineitemservice.NewService(lineitemservice.ServiceParam{
			DB: db, Log: log, GenID: node, Clock: fakeClock,
			Reconciler: reconciler, AuditSvc: auditSvc,
		}),
	})
}

func (s *Server) do(t *testing.T, method, path, body, role string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(HeaderActorID, "usr-1")
		req.Header.Set(HeaderActorRole, role)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), "body: %s", w.Body.String())
	return envelope.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var envelope errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), "body: %s", w.Body.String())
	return envelope.Error
}

func (s *Server) createClient(t *testing.T) clientdomain.Client {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/clients", `{"name":"Acme Corp","currency":"EUR"}`, authorization.RoleAdmin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[clientdomain.Client](t, w)
}

func (s *Server) createDraft(t *testing.T, clientID snowflake.ID) sddomain.ServiceDescription {
	t.Helper()
	body := fmt.Sprintf(`{"clientId":%q,"periodStart":"2025-02-01T00:00:00Z","periodEnd":"2025-02-28T00:00:00Z"}`, clientID.String())
	w := s.do(t, http.MethodPost, "/api/v1/service-descriptions", body, authorization.RoleAdmin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[sddomain.ServiceDescription](t, w)
}

func TestMissingActorHeadersRejected(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/api/v1/clients", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())
}

func TestEmployeeCannotCreateServiceDescription(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/api/v1/service-descriptions",
		`{"clientId":"1","periodStart":"2025-02-01T00:00:00Z","periodEnd":"2025-02-28T00:00:00Z"}`,
		authorization.RoleEmployee)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
}

func TestEmployeeCanCreateTimeEntry(t *testing.T) {
	srv := newTestServer(t)
	client := srv.createClient(t)

	body := fmt.Sprintf(`{"clientId":%q,"employeeName":"M. Petrova","workDate":"2025-02-10T00:00:00Z","hours":"1.5","description":"case work"}`, client.ID.String())
	w := srv.do(t, http.MethodPost, "/api/v1/time-entries", body, authorization.RoleEmployee)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCreateAndFetchServiceDescription(t *testing.T) {
	srv := newTestServer(t)
	client := srv.createClient(t)
	doc := srv.createDraft(t, client.ID)
	assert.Equal(t, sddomain.DocumentStatusDraft, doc.Status)
	assert.Equal(t, "EUR", doc.Currency)

	w := srv.do(t, http.MethodGet, "/api/v1/service-descriptions/"+doc.ID.String(), "", authorization.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decodeData[sddomain.DocumentView](t, w)
	assert.Equal(t, doc.ID, view.ID)
	assert.True(t, view.Totals.GrandTotal.IsZero())
}

func TestUnknownDocumentReturns404(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/api/v1/service-descriptions/123456789", "", authorization.RoleAdmin)
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	assert.Equal(t, "not_found", decodeError(t, w).Type)
}

func TestMalformedBodyReturnsValidationError(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/api/v1/service-descriptions", `{"clientId":`, authorization.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "validation_error", decodeError(t, w).Type)
}

func TestDiscountSetAndExplicitNullClear(t *testing.T) {
	srv := newTestServer(t)
	client := srv.createClient(t)
	doc := srv.createDraft(t, client.ID)
	path := "/api/v1/service-descriptions/" + doc.ID.String() + "/discount"

	w := srv.do(t, http.MethodPatch, path, `{"type":"PERCENTAGE","value":"10"}`, authorization.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeData[sddomain.ServiceDescription](t, w)
	require.NotNil(t, updated.DiscountType)
	require.NotNil(t, updated.DiscountValue)
	assert.True(t, updated.DiscountValue.Equal(decimalFromString(t, "10")))

	// Explicit nulls clear both fields; an absent key would leave them alone.
	w = srv.do(t, http.MethodPatch, path, `{"type":null,"value":null}`, authorization.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated = decodeData[sddomain.ServiceDescription](t, w)
	assert.Nil(t, updated.DiscountType)
	assert.Nil(t, updated.DiscountValue)

	w = srv.do(t, http.MethodPatch, path, `{"value":"10"}`, authorization.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestFinalizeBlocksMutationsOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := srv.createClient(t)
	doc := srv.createDraft(t, client.ID)
	base := "/api/v1/service-descriptions/" + doc.ID.String()

	w := srv.do(t, http.MethodPost, base+"/topics", `{"topicName":"General","pricingMode":"HOURLY"}`, authorization.RoleAdmin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = srv.do(t, http.MethodPatch, base+"/status", `{"status":"FINALIZED"}`, authorization.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	finalized := decodeData[sddomain.ServiceDescription](t, w)
	require.NotNil(t, finalized.FinalizedAt)
	require.NotNil(t, finalized.FinalizedByID)
	assert.Equal(t, "usr-1", *finalized.FinalizedByID)

	w = srv.do(t, http.MethodPost, base+"/topics", `{"topicName":"More","pricingMode":"HOURLY"}`, authorization.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w = srv.do(t, http.MethodDelete, base, "", authorization.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	// Employees may not unlock.
	w = srv.do(t, http.MethodPatch, base+"/status", `{"status":"DRAFT"}`, authorization.RoleEmployee)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	w = srv.do(t, http.MethodPatch, base+"/status", `{"status":"DRAFT"}`, authorization.RoleAdmin)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRoleIsEvaluatedPerRequest(t *testing.T) {
	srv := newTestServer(t)
	client := srv.createClient(t)
	doc := srv.createDraft(t, client.ID)
	base := "/api/v1/service-descriptions/" + doc.ID.String()

	w := srv.do(t, http.MethodPatch, base+"/status", `{"status":"FINALIZED"}`, authorization.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// An actor previously seen as admin gains nothing from that history:
	// a later request claiming employee is judged on employee grants alone.
	w = srv.do(t, http.MethodPatch, base+"/status", `{"status":"DRAFT"}`, authorization.RoleEmployee)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	w = srv.do(t, http.MethodGet, base, "", authorization.RoleEmployee)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decodeData[sddomain.DocumentView](t, w)
	assert.Equal(t, sddomain.DocumentStatusFinalized, view.Status)
}

func TestLineItemWaiveOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := srv.createClient(t)
	doc := srv.createDraft(t, client.ID)
	base := "/api/v1/service-descriptions/" + doc.ID.String()

	w := srv.do(t, http.MethodPost, base+"/topics", `{"topicName":"General","pricingMode":"HOURLY","hourlyRate":"200"}`, authorization.RoleAdmin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	topic := decodeData[sddomain.Topic](t, w)

	body := fmt.Sprintf(`{"topicId":%q,"description":"drafting","hours":"2"}`, topic.ID.String())
	w = srv.do(t, http.MethodPost, base+"/line-items", body, authorization.RoleAdmin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	item := decodeData[sddomain.LineItem](t, w)

	w = srv.do(t, http.MethodPut, base+"/line-items/"+item.ID.String()+"/waive", `{"mode":"ZERO"}`, authorization.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The waived row still shows on the document with a zero amount.
	w = srv.do(t, http.MethodGet, base, "", authorization.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decodeData[sddomain.DocumentView](t, w)
	assert.True(t, view.Totals.GrandTotal.IsZero())
	require.Len(t, view.Topics, 1)
	require.Len(t, view.Topics[0].LineItems, 1)
	require.NotNil(t, view.Topics[0].LineItems[0].WaiveMode)
}

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
