package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"metacatalog/internal/auth"
	"metacatalog/internal/domain"
	"metacatalog/internal/hub"
	"metacatalog/internal/metrics"
	"metacatalog/internal/repository/sqlite"
	"metacatalog/internal/service"
)

type testServer struct {
	t       *testing.T
	catalog *service.Catalog
	router  http.Handler
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := zaptest.NewLogger(t)
	collector := metrics.NewCollector("metacatalog_test")
	catalog := service.NewCatalog(store, nil, logger, collector,
		service.Options{BaseURL: "http://localhost:8585"})
	h := New(catalog, hub.New(logger, 0), collector, logger, opts)
	return &testServer{t: t, catalog: catalog, router: h.Routes()}
}

// do sends body as JSON unless it is already a string
func (s *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createPipelineService(name string) *domain.PipelineService {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/services/pipelineServices", domain.CreatePipelineService{
		Name:        name,
		ServiceType: "Airflow",
		PipelineURL: "http://airflow.example.com:8080",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[*domain.PipelineService](s.t, rec)
}

func pipelineBody(service, name string, tasks ...domain.Task) map[string]any {
	return map[string]any{
		"name":    name,
		"service": map[string]any{"name": service, "type": domain.EntityPipelineService},
		"tasks":   tasks,
	}
}

func fieldNames(changes []domain.FieldChange) []string {
	names := []string{}
	for _, c := range changes {
		names = append(names, c.Name)
	}
	return names
}

func TestPipelineCreate(t *testing.T) {
	s := newTestServer(t, Options{})
	s.createPipelineService("airflow")

	rec := s.do(http.MethodPost, "/api/v1/pipelines", map[string]any{"name": "etl"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "service must not be null", errBody.Message)
	assert.Equal(t, http.StatusBadRequest, errBody.Code)
	assert.Equal(t, "VALIDATION", errBody.Type)
	assert.NotEmpty(t, errBody.RequestID)

	rec = s.do(http.MethodPost, "/api/v1/pipelines", map[string]any{"service": map[string]any{"name": "airflow"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name must not be null", decodeBody[ErrorResponse](t, rec).Message)

	rec = s.do(http.MethodPost, "/api/v1/pipelines", pipelineBody("airflow", "etl", domain.Task{Name: "extract"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decodeBody[*domain.Pipeline](t, rec)
	assert.Equal(t, "airflow.etl", p.FullyQualifiedName)
	assert.Equal(t, domain.InitialVersion, p.Version)
	assert.Equal(t, "Airflow", p.ServiceType)
	assert.Equal(t, "http://localhost:8585/api/v1/pipelines/"+p.ID.String(), p.Href)

	rec = s.do(http.MethodPost, "/api/v1/pipelines", pipelineBody("airflow", "etl"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/pipelines", pipelineBody("missing", "etl"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/pipelines", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPipelineGetAndList(t *testing.T) {
	s := newTestServer(t, Options{})
	s.createPipelineService("airflow")
	s.createPipelineService("prefect")
	for _, body := range []map[string]any{
		pipelineBody("airflow", "etl", domain.Task{Name: "extract"}),
		pipelineBody("airflow", "report"),
		pipelineBody("prefect", "etl"),
	} {
		require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/pipelines", body).Code)
	}

	rec := s.do(http.MethodGet, "/api/v1/pipelines?service=airflow", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[domain.ResultList[*domain.Pipeline]](t, rec)
	assert.Equal(t, 2, list.Paging.Total)
	require.Len(t, list.Data, 2)
	assert.Equal(t, "airflow.etl", list.Data[0].FullyQualifiedName)
	assert.Equal(t, "airflow.report", list.Data[1].FullyQualifiedName)

	rec = s.do(http.MethodGet, "/api/v1/pipelines?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decodeBody[domain.ResultList[*domain.Pipeline]](t, rec)
	assert.Equal(t, 3, list.Paging.Total)
	require.Len(t, list.Data, 1)
	require.NotEmpty(t, list.Paging.After)

	rec = s.do(http.MethodGet, "/api/v1/pipelines?limit=1&after="+list.Paging.After, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	next := decodeBody[domain.ResultList[*domain.Pipeline]](t, rec)
	require.Len(t, next.Data, 1)
	assert.Equal(t, "airflow.report", next.Data[0].FullyQualifiedName)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/pipelines?limit=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/pipelines?limit=-1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/pipelines?limit=1001", nil).Code)

	rec = s.do(http.MethodGet, "/api/v1/pipelines/name/airflow.etl", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decodeBody[*domain.Pipeline](t, rec)
	assert.Empty(t, p.Tasks)
	require.NotNil(t, p.Service)
	assert.Equal(t, "airflow", p.Service.Name)

	rec = s.do(http.MethodGet, "/api/v1/pipelines/"+p.ID.String()+"?fields=tasks,owner", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p = decodeBody[*domain.Pipeline](t, rec)
	require.Len(t, p.Tasks, 1)
	assert.Equal(t, "extract", p.Tasks[0].Name)

	rec = s.do(http.MethodGet, "/api/v1/pipelines/"+p.ID.String()+"?fields=columns", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/pipelines/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/pipelines/name/airflow.missing", nil).Code)
}

func TestPipelinePut(t *testing.T) {
	s := newTestServer(t, Options{})
	s.createPipelineService("airflow")

	rec := s.do(http.MethodPut, "/api/v1/pipelines", pipelineBody("airflow", "etl", domain.Task{Name: "extract"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[*domain.Pipeline](t, rec)

	// unchanged PUT keeps the version
	rec = s.do(http.MethodPut, "/api/v1/pipelines", pipelineBody("airflow", "etl", domain.Task{Name: "extract"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.InitialVersion, decodeBody[*domain.Pipeline](t, rec).Version)

	body := pipelineBody("airflow", "etl", domain.Task{Name: "load"})
	body["description"] = "first description"
	rec = s.do(http.MethodPut, "/api/v1/pipelines", body)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decodeBody[*domain.Pipeline](t, rec)
	assert.Equal(t, created.ID, p.ID)
	assert.Equal(t, 0.2, p.Version)
	assert.Equal(t, "first description", p.Description)
	require.NotNil(t, p.ChangeDescription)
	assert.ElementsMatch(t, []string{"description", "tasks"}, fieldNames(p.ChangeDescription.FieldsAdded))

	// tasks are merged, not replaced
	rec = s.do(http.MethodGet, "/api/v1/pipelines/"+p.ID.String()+"?fields=tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p = decodeBody[*domain.Pipeline](t, rec)
	require.Len(t, p.Tasks, 2)
	assert.Equal(t, "extract", p.Tasks[0].Name)
	assert.Equal(t, "load", p.Tasks[1].Name)

	// a description already set is retained
	body["description"] = "second description"
	rec = s.do(http.MethodPut, "/api/v1/pipelines", body)
	require.Equal(t, http.StatusOK, rec.Code)
	p = decodeBody[*domain.Pipeline](t, rec)
	assert.Equal(t, "first description", p.Description)
	assert.Equal(t, 0.2, p.Version)
}

func TestPipelinePatch(t *testing.T) {
	s := newTestServer(t, Options{})
	s.createPipelineService("airflow")
	rec := s.do(http.MethodPost, "/api/v1/pipelines", pipelineBody("airflow", "etl", domain.Task{Name: "taskEmpty"}))
	require.Equal(t, http.StatusCreated, rec.Code)
	p := decodeBody[*domain.Pipeline](t, rec)
	path := "/api/v1/pipelines/" + p.ID.String()

	merge := `{"description": "patched", "tasks": [{"name": "taskEmpty", "description": "task description"}]}`
	rec = s.do(http.MethodPatch, path, merge, "Content-Type", "application/merge-patch+json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p = decodeBody[*domain.Pipeline](t, rec)
	assert.Equal(t, 0.2, p.Version)
	assert.Equal(t, "patched", p.Description)
	assert.ElementsMatch(t, []string{"description", "tasks.taskEmpty.description"},
		fieldNames(p.ChangeDescription.FieldsAdded))

	jsonPatch := `[{"op": "replace", "path": "/description", "value": "replaced"},
		{"op": "replace", "path": "/fullyQualifiedName", "value": "other.name"}]`
	rec = s.do(http.MethodPatch, path, jsonPatch, "Content-Type", "application/json-patch+json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p = decodeBody[*domain.Pipeline](t, rec)
	assert.Equal(t, 0.3, p.Version)
	assert.Equal(t, "replaced", p.Description)
	assert.Equal(t, "airflow.etl", p.FullyQualifiedName)
	assert.Equal(t, []string{"description"}, fieldNames(p.ChangeDescription.FieldsUpdated))

	rec = s.do(http.MethodPatch, path, `[{"op": "remove", "path": "/missing"}]`,
		"Content-Type", "application/json-patch+json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, path+"/versions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decodeBody[domain.EntityHistory](t, rec)
	assert.Equal(t, domain.EntityPipeline, history.EntityType)
	assert.Len(t, history.Versions, 3)

	rec = s.do(http.MethodGet, path+"/versions/0.1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	old := decodeBody[*domain.Pipeline](t, rec)
	assert.Equal(t, domain.InitialVersion, old.Version)
	assert.Empty(t, old.Description)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path+"/versions/9.9", nil).Code)
}

func TestGlossaryDeleteNotEmpty(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := s.do(http.MethodPost, "/api/v1/glossaries", domain.CreateGlossary{Name: "business"})
	require.Equal(t, http.StatusCreated, rec.Code)
	glossary := decodeBody[*domain.Glossary](t, rec)

	rec = s.do(http.MethodPost, "/api/v1/glossaryTerms", map[string]any{
		"name":     "revenue",
		"glossary": map[string]any{"id": glossary.ID, "type": domain.EntityGlossary},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	term := decodeBody[*domain.GlossaryTerm](t, rec)
	assert.Equal(t, "business.revenue", term.FullyQualifiedName)

	rec = s.do(http.MethodGet, "/api/v1/glossaryTerms?glossary=business", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[domain.ResultList[*domain.GlossaryTerm]](t, rec).Paging.Total)

	rec = s.do(http.MethodDelete, "/api/v1/glossaries/"+glossary.ID.String(), nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Glossary is not empty", decodeBody[ErrorResponse](t, rec).Message)

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/v1/glossaryTerms/"+term.ID.String(), nil).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/v1/glossaries/"+glossary.ID.String(), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/glossaries/"+glossary.ID.String(), nil).Code)
}

func TestFollowers(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := s.do(http.MethodPost, "/api/v1/users", domain.CreateUser{Name: "alice", Email: "alice@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decodeBody[*domain.User](t, rec)
	rec = s.do(http.MethodPost, "/api/v1/glossaries", domain.CreateGlossary{Name: "business"})
	require.Equal(t, http.StatusCreated, rec.Code)
	glossary := decodeBody[*domain.Glossary](t, rec)
	path := "/api/v1/glossaries/" + glossary.ID.String()

	rec = s.do(http.MethodPut, path+"/followers", `"`+user.ID.String()+`"`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, changeFollowers, rec.Header().Get(changeTypeHeader))
	event := decodeBody[domain.ChangeEvent](t, rec)
	assert.Equal(t, []string{domain.FieldFollowers}, fieldNames(event.ChangeDescription.FieldsAdded))

	rec = s.do(http.MethodPut, path+"/followers", `"`+user.ID.String()+`"`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, changeNoChange, rec.Header().Get(changeTypeHeader))

	rec = s.do(http.MethodGet, path+"?fields=followers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	followed := decodeBody[*domain.Glossary](t, rec)
	require.Len(t, followed.Followers, 1)
	assert.Equal(t, "alice", followed.Followers[0].Name)

	rec = s.do(http.MethodDelete, path+"/followers/"+user.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, changeFollowers, rec.Header().Get(changeTypeHeader))

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, path+"/followers", `"nope"`).Code)
}

func TestValidationMessages(t *testing.T) {
	s := newTestServer(t, Options{})
	tests := []struct {
		name string
		path string
		body string
		want string
	}{
		{"missing email", "/api/v1/users", `{"name": "bob"}`, "email must not be null"},
		{"bad email", "/api/v1/users", `{"name": "bob", "email": "bob"}`, "email must be a well-formed email address"},
		{"bad service type", "/api/v1/services/databaseServices", `{"name": "db", "serviceType": "Oracle"}`,
			"serviceType must be one of [MySQL, Postgres, Snowflake, BigQuery, Glue, Hive]"},
		{"missing columns", "/api/v1/tables", `{"name": "t", "database": {"name": "x"}}`, "columns must not be null"},
		{"empty body", "/api/v1/teams", ``, "request body must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeBody[ErrorResponse](t, rec).Message)
		})
	}
}

func TestTags(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := s.do(http.MethodPost, "/api/v1/tags", domain.TagCategory{
		Name:         "PII",
		CategoryType: domain.CategoryClassification,
		Children:     []domain.Tag{{Name: "Sensitive"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/v1/tags/PII/Sensitive", domain.Tag{Name: "Email"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "PII.Sensitive.Email", decodeBody[domain.Tag](t, rec).FullyQualifiedName)

	rec = s.do(http.MethodGet, "/api/v1/tags/PII/Sensitive/Email", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:8585/api/v1/tags/PII/Sensitive/Email", decodeBody[domain.Tag](t, rec).Href)

	rec = s.do(http.MethodPut, "/api/v1/tags/PII/Sensitive", domain.Tag{Description: "handle with care"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "handle with care", decodeBody[domain.Tag](t, rec).Description)

	rec = s.do(http.MethodGet, "/api/v1/tags", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[domain.ResultList[domain.TagCategory]](t, rec)
	require.Len(t, list.Data, 1)
	require.Len(t, list.Data[0].Children, 1)
	assert.Len(t, list.Data[0].Children[0].Children, 1)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/tags/Unknown", nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/v1/tags/PII", domain.Tag{Name: "Sensitive"}).Code)
}

func TestEventsAndExport(t *testing.T) {
	s := newTestServer(t, Options{})
	require.Equal(t, http.StatusCreated,
		s.do(http.MethodPost, "/api/v1/glossaries", domain.CreateGlossary{Name: "business"}).Code)
	s.createPipelineService("airflow")

	rec := s.do(http.MethodGet, "/api/v1/events?entityCreated=glossary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decodeBody[domain.ResultList[domain.ChangeEvent]](t, rec)
	require.Len(t, events.Data, 1)
	assert.Equal(t, domain.EventEntityCreated, events.Data[0].EventType)

	rec = s.do(http.MethodGet, "/api/v1/events?entityCreated=*&timestamp=0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[domain.ResultList[domain.ChangeEvent]](t, rec).Data, 2)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/events", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/events?entityUpdated=*&timestamp=x", nil).Code)

	rec = s.do(http.MethodGet, "/api/v1/export?format=yaml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "name: business")

	rec = s.do(http.MethodGet, "/api/v1/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := decodeBody[domain.Snapshot](t, rec)
	assert.Len(t, snapshot.Glossaries, 1)
	assert.Len(t, snapshot.PipelineServices, 1)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/export?format=xml", nil).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := s.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody[map[string]any](t, rec)["status"])

	s.do(http.MethodGet, "/api/v1/glossaries", nil)
	rec = s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "metacatalog_test_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/api/v1/glossaries`)

	rec = s.do(http.MethodGet, "/api/v2/nothing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPrincipalHeader(t *testing.T) {
	s := newTestServer(t, Options{Auth: auth.Options{DefaultPrincipal: "anonymous"}})

	rec := s.do(http.MethodPost, "/api/v1/glossaries", domain.CreateGlossary{Name: "business"},
		auth.DefaultPrincipalHeader, "carol@example.com")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "carol", decodeBody[*domain.Glossary](t, rec).UpdatedBy)

	rec = s.do(http.MethodPost, "/api/v1/glossaries", domain.CreateGlossary{Name: "finance"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "anonymous", decodeBody[*domain.Glossary](t, rec).UpdatedBy)
}

func TestTokenAuthentication(t *testing.T) {
	s := newTestServer(t, Options{
		Auth:    auth.Options{Enabled: true},
		IsAdmin: func(p string) bool { return p == "root" },
	})
	ctx := auth.WithPrincipal(context.Background(), "root")
	alice, err := s.catalog.Users.Create(ctx, (&domain.CreateUser{Name: "alice", Email: "alice@example.com"}).ToEntity())
	require.NoError(t, err)
	bob, err := s.catalog.Users.Create(ctx, (&domain.CreateUser{Name: "bob", Email: "bob@example.com"}).ToEntity())
	require.NoError(t, err)

	rec := s.do(http.MethodGet, "/api/v1/glossaries", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	issued, err := s.catalog.Tokens.Issue(ctx, alice.ID, 0)
	require.NoError(t, err)
	bearer := "Bearer " + issued.Token

	rec = s.do(http.MethodPost, "/api/v1/glossaries", domain.CreateGlossary{Name: "business"}, "Authorization", bearer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "alice", decodeBody[*domain.Glossary](t, rec).UpdatedBy)

	// alice may manage her own tokens but not bob's
	rec = s.do(http.MethodPost, "/api/v1/users/"+alice.ID.String()+"/token", `{"ttl": "24h"}`, "Authorization", bearer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token := decodeBody[service.IssuedToken](t, rec)
	assert.NotNil(t, token.ExpiresAt)
	assert.True(t, strings.HasPrefix(token.Token, token.ID.String()+"."))

	rec = s.do(http.MethodPost, "/api/v1/users/"+bob.ID.String()+"/token", nil, "Authorization", bearer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/users/"+alice.ID.String()+"/token", `{"ttl": "soon"}`, "Authorization", bearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodDelete, "/api/v1/users/"+alice.ID.String()+"/token", nil, "Authorization", bearer)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/glossaries", nil, "Authorization", bearer)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
