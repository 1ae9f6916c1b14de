package service

import (
	"encoding/json"
	"testing"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metacatalog/internal/apperror"
	"metacatalog/internal/domain"
)

func createPipelineService(t *testing.T, c *Catalog, name string) *domain.PipelineService {
	t.Helper()
	req := &domain.CreatePipelineService{
		Name:        name,
		ServiceType: domain.PipelineServiceAirflow,
		PipelineURL: "http://localhost:8080",
	}
	service, err := c.PipelineServices.Create(adminContext(), req.ToEntity())
	require.NoError(t, err)
	return service
}

func pipelineRequest(service *domain.PipelineService, name string, tasks ...domain.Task) *domain.CreatePipeline {
	return &domain.CreatePipeline{
		Name:    name,
		Tasks:   tasks,
		Service: &domain.EntityReference{ID: service.ID, Type: domain.EntityPipelineService},
	}
}

func fieldNames(changes []domain.FieldChange) []string {
	names := make([]string, 0, len(changes))
	for _, change := range changes {
		names = append(names, change.Name)
	}
	return names
}

func TestCreatePipeline(t *testing.T) {
	c := newTestCatalog(t)
	ctx := adminContext()
	service := createPipelineService(t, c, "airflow")

	pipeline, err := c.Pipelines.Create(ctx, pipelineRequest(service, "etl", domain.Task{Name: "extract"}).ToEntity())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, pipeline.ID)
	assert.Equal(t, "airflow.etl", pipeline.FullyQualifiedName)
	assert.Equal(t, domain.InitialVersion, pipeline.Version)
	assert.Equal(t, "admin", pipeline.UpdatedBy)
	assert.Equal(t, "Airflow", pipeline.ServiceType)
	assert.Equal(t, testBaseURL+"/api/v1/pipelines/"+pipeline.ID.String(), pipeline.Href)
	require.NotNil(t, pipeline.Service)
	assert.Equal(t, "airflow", pipeline.Service.Name)

	t.Run("duplicate name", func(t *testing.T) {
		_, err := c.Pipelines.Create(ctx, pipelineRequest(service, "etl").ToEntity())
		assert.True(t, apperror.IsConflict(err))
	})

	t.Run("missing service", func(t *testing.T) {
		req := pipelineRequest(service, "orphan")
		req.Service = nil
		_, err := c.Pipelines.Create(ctx, req.ToEntity())
		require.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
		assert.Contains(t, err.Error(), "service must not be null")
	})

	t.Run("unknown service", func(t *testing.T) {
		req := pipelineRequest(service, "orphan")
		req.Service.ID = uuid.New()
		_, err := c.Pipelines.Create(ctx, req.ToEntity())
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("wrong service type", func(t *testing.T) {
		req := pipelineRequest(service, "orphan")
		req.Service.Type = domain.EntityDatabaseService
		_, err := c.Pipelines.Create(ctx, req.ToEntity())
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("get by name", func(t *testing.T) {
		got, err := c.Pipelines.GetByName(ctx, "airflow.etl", "")
		require.NoError(t, err)
		assert.Equal(t, pipeline.ID, got.ID)
		assert.Nil(t, got.Tasks)
		assert.NotNil(t, got.Service)

		got, err = c.Pipelines.Get(ctx, pipeline.ID, "tasks")
		require.NoError(t, err)
		require.Len(t, got.Tasks, 1)
		assert.Equal(t, "extract", got.Tasks[0].Name)
	})

	t.Run("list by service", func(t *testing.T) {
		other := createPipelineService(t, c, "prefect")
		_, err := c.Pipelines.Create(ctx, pipelineRequest(other, "load").ToEntity())
		require.NoError(t, err)

		list, err := c.Pipelines.List(ctx, ListParams{Container: "airflow"})
		require.NoError(t, err)
		require.Len(t, list.Data, 1)
		assert.Equal(t, "airflow.etl", list.Data[0].FullyQualifiedName)

		all, err := c.Pipelines.List(ctx, ListParams{})
		require.NoError(t, err)
		assert.Equal(t, 2, all.Paging.Total)
	})
}

func TestPatchPipelineTasks(t *testing.T) {
	c := newTestCatalog(t)
	ctx := adminContext()
	service := createPipelineService(t, c, "airflow")
	pipeline, err := c.Pipelines.Create(ctx, pipelineRequest(service, "etl", domain.Task{Name: "taskEmpty"}).ToEntity())
	require.NoError(t, err)

	patchDescription := func(description string) *domain.Pipeline {
		t.Helper()
		current, err := c.Pipelines.Get(ctx, pipeline.ID, "tasks")
		require.NoError(t, err)
		orig, err := json.Marshal(current)
		require.NoError(t, err)

		current.Tasks[0].Description = description
		updated, err := json.Marshal(current)
		require.NoError(t, err)

		patch, err := jsonpatch.CreateMergePatch(orig, updated)
		require.NoError(t, err)
		patched, err := c.Pipelines.Patch(ctx, pipeline.ID, MergePatch, patch)
		require.NoError(t, err)
		return patched
	}

	added := patchDescription("newDescription")
	assert.Equal(t, 0.2, added.Version)
	require.NotNil(t, added.ChangeDescription)
	assert.Equal(t, []string{"tasks.taskEmpty.description"}, fieldNames(added.ChangeDescription.FieldsAdded))
	assert.Empty(t, added.ChangeDescription.FieldsUpdated)

	updated := patchDescription("newDescription2")
	assert.Equal(t, 0.3, updated.Version)
	assert.Equal(t, []string{"tasks.taskEmpty.description"}, fieldNames(updated.ChangeDescription.FieldsUpdated))
	assert.Equal(t, "newDescription", updated.ChangeDescription.FieldsUpdated[0].OldValue)
	assert.Equal(t, "newDescription2", updated.ChangeDescription.FieldsUpdated[0].NewValue)

	deleted := patchDescription("")
	assert.Equal(t, 0.4, deleted.Version)
	assert.Equal(t, []string{"tasks.taskEmpty.description"}, fieldNames(deleted.ChangeDescription.FieldsDeleted))

	history, err := c.Pipelines.ListVersions(ctx, pipeline.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EntityPipeline, history.EntityType)
	assert.Len(t, history.Versions, 4)

	first, err := c.Pipelines.GetVersion(ctx, pipeline.ID, "0.1")
	require.NoError(t, err)
	assert.Equal(t, 0.1, first.Version)
	require.Len(t, first.Tasks, 1)
	assert.Empty(t, first.Tasks[0].Description)

	second, err := c.Pipelines.GetVersion(ctx, pipeline.ID, "0.2")
	require.NoError(t, err)
	assert.Equal(t, "newDescription", second.Tasks[0].Description)

	_, err = c.Pipelines.GetVersion(ctx, pipeline.ID, "7.0")
	assert.True(t, apperror.IsNotFound(err))
	_, err = c.Pipelines.GetVersion(ctx, pipeline.ID, "latest")
	assert.True(t, apperror.IsValidation(err))
}

func TestPatchPipelineMergesTasks(t *testing.T) {
	c := newTestCatalog(t)
	ctx := adminContext()
	service := createPipelineService(t, c, "airflow")
	pipeline, err := c.Pipelines.Create(ctx,
		pipelineRequest(service, "etl", domain.Task{Name: "t1"}, domain.Task{Name: "t2"}).ToEntity())
	require.NoError(t, err)

	taskNames := func(p *domain.Pipeline) []string {
		names := make([]string, 0, len(p.Tasks))
		for _, task := range p.Tasks {
			names = append(names, task.Name)
		}
		return names
	}

	// A patched task list is merged into the stored one, not substituted
	added, err := c.Pipelines.Patch(ctx, pipeline.ID, MergePatch, []byte(`{
		"description": "newDescription",
		"tasks": [{"name": "taskEmpty", "taskUrl": "http://localhost:0"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 0.2, added.Version)
	assert.Equal(t, []string{"t1", "t2", "taskEmpty"}, taskNames(added))
	assert.ElementsMatch(t, []string{"description", "tasks"}, fieldNames(added.ChangeDescription.FieldsAdded))
	assert.Empty(t, added.ChangeDescription.FieldsDeleted)

	updated, err := c.Pipelines.Patch(ctx, pipeline.ID, MergePatch, []byte(`{
		"description": "newDescription2",
		"tasks": [{"name": "taskEmpty", "taskUrl": "http://localhost:0", "description": "newTaskDescription"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 0.3, updated.Version)
	assert.Len(t, updated.Tasks, 3)
	assert.Equal(t, []string{"tasks.taskEmpty.description"}, fieldNames(updated.ChangeDescription.FieldsAdded))
	assert.Equal(t, []string{"description"}, fieldNames(updated.ChangeDescription.FieldsUpdated))

	// Pipeline and task descriptions deleted in one step
	deleted, err := c.Pipelines.Patch(ctx, pipeline.ID, MergePatch, []byte(`{
		"description": null,
		"tasks": [{"name": "taskEmpty", "taskUrl": "http://localhost:0"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 0.4, deleted.Version)
	assert.Equal(t, []string{"t1", "t2", "taskEmpty"}, taskNames(deleted))
	assert.Empty(t, deleted.Description)
	assert.Empty(t, deleted.Tasks[2].Description)
	assert.ElementsMatch(t, []string{"description", "tasks.taskEmpty.description"},
		fieldNames(deleted.ChangeDescription.FieldsDeleted))
	assert.Empty(t, deleted.ChangeDescription.FieldsAdded)
	assert.Empty(t, deleted.ChangeDescription.FieldsUpdated)
}

func TestDottedNamesRejected(t *testing.T) {
	c := newTestCatalog(t)
	ctx := adminContext()
	x := createPipelineService(t, c, "x")

	// "x" + "a.b" would share the FQN x.a.b with "x.a" + "b"
	_, err := c.Pipelines.Create(ctx, pipelineRequest(x, "a.b").ToEntity())
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Contains(t, err.Error(), `must not contain "."`)

	_, _, err = c.Pipelines.CreateOrUpdate(ctx, pipelineRequest(x, "a.b").ToEntity())
	assert.True(t, apperror.IsValidation(err))

	req := &domain.CreatePipelineService{Name: "x.a", ServiceType: domain.PipelineServiceAirflow}
	_, err = c.PipelineServices.Create(ctx, req.ToEntity())
	assert.True(t, apperror.IsValidation(err))

	_, err = c.Pipelines.Create(ctx, pipelineRequest(x, "etl", domain.Task{Name: "extract.all"}).ToEntity())
	assert.True(t, apperror.IsValidation(err))

	t.Run("patch cannot add a dotted task", func(t *testing.T) {
		pipeline, err := c.Pipelines.Create(ctx, pipelineRequest(x, "load").ToEntity())
		require.NoError(t, err)
		_, err = c.Pipelines.Patch(ctx, pipeline.ID, MergePatch, []byte(`{"tasks": [{"name": "a.b"}]}`))
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("container listing stays within its service", func(t *testing.T) {
		other := createPipelineService(t, c, "xa")
		_, err := c.Pipelines.Create(ctx, pipelineRequest(other, "b").ToEntity())
		require.NoError(t, err)

		list, err := c.Pipelines.List(ctx, ListParams{Container: "x"})
		require.NoError(t, err)
		for _, p := range list.Data {
			assert.Equal(t, "x", p.Service.Name)
		}
	})

	t.Run("users keep dotted names", func(t *testing.T) {
		createUser(t, c, "jane.doe")
	})
}

func TestPatchPipelineAttributes(t *testing.T) {
	c := newTestCatalog(t)
	ctx := adminContext()
	service := createPipelineService(t, c, "airflow")
	pipeline, err := c.Pipelines.Create(ctx, pipelineRequest(service, "etl").ToEntity())
	require.NoError(t, err)

	patched, err := c.Pipelines.Patch(ctx, pipeline.ID, JSONPatch, []byte(`[
		{"op": "add", "path": "/description", "value": "nightly load"},
		{"op": "add", "path": "/concurrency", "value": 4},
		{"op": "add", "path": "/pipelineLocation", "value": "/dags/etl.py"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 0.2, patched.Version)
	assert.ElementsMatch(t, []string{"description", "concurrency", "pipelineLocation"},
		fieldNames(patched.ChangeDescription.FieldsAdded))
	require.NotNil(t, patched.Concurrency)
	assert.Equal(t, 4, *patched.Concurrency)

	t.Run("immutable attributes are restored", func(t *testing.T) {
		patched, err := c.Pipelines.Patch(ctx, pipeline.ID, MergePatch,
			[]byte(`{"name": "renamed", "fullyQualifiedName": "x.y", "version": 9.9}`))
		require.NoError(t, err)
		assert.Equal(t, "etl", patched.Name)
		assert.Equal(t, "airflow.etl", patched.FullyQualifiedName)
		assert.Equal(t, 0.2, patched.Version)
	})

	t.Run("invalid patch", func(t *testing.T) {
		_, err := c.Pipelines.Patch(ctx, pipeline.ID, JSONPatch, []byte(`{"op": "add"}`))
		assert.True(t, apperror.IsValidation(err))

		_, err = c.Pipelines.Patch(ctx, pipeline.ID, JSONPatch, []byte(`[{"op": "remove", "path": "/missing"}]`))
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("unknown pipeline", func(t *testing.T) {
		_, err := c.Pipelines.Patch(ctx, uuid.New(), MergePatch, []byte(`{}`))
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestPutPipeline(t *testing.T) {
	c := newTestCatalog(t)
	ctx := adminContext()
	service := createPipelineService(t, c, "airflow")

	req := pipelineRequest(service, "etl", domain.Task{Name: "extract", Description: "curated"})
	pipeline, created, err := c.Pipelines.CreateOrUpdate(ctx, req.ToEntity())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.InitialVersion, pipeline.Version)

	t.Run("unchanged put keeps the version", func(t *testing.T) {
		same, created, err := c.Pipelines.CreateOrUpdate(ctx, req.ToEntity())
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, pipeline.ID, same.ID)
		assert.Equal(t, domain.InitialVersion, same.Version)
	})

	t.Run("description added when empty", func(t *testing.T) {
		req := pipelineRequest(service, "etl")
		req.Description = "first"
		updated, _, err := c.Pipelines.CreateOrUpdate(ctx, req.ToEntity())
		require.NoError(t, err)
		assert.Equal(t, "first", updated.Description)
		assert.Equal(t, 0.2, updated.Version)
		assert.Equal(t, []string{"description"}, fieldNames(updated.ChangeDescription.FieldsAdded))
	})

	t.Run("stored description is retained", func(t *testing.T) {
		req := pipelineRequest(service, "etl")
		req.Description = "second"
		updated, _, err := c.Pipelines.CreateOrUpdate(ctx, req.ToEntity())
		require.NoError(t, err)
		assert.Equal(t, "first", updated.Description)
		assert.Equal(t, 0.2, updated.Version)
	})

	t.Run("tasks are merged", func(t *testing.T) {
		req := pipelineRequest(service, "etl",
			domain.Task{Name: "extract", Description: "overwritten"},
			domain.Task{Name: "load"})
		updated, _, err := c.Pipelines.CreateOrUpdate(ctx, req.ToEntity())
		require.NoError(t, err)
		assert.Equal(t, 0.3, updated.Version)
		assert.Equal(t, []string{"tasks"}, fieldNames(updated.ChangeDescription.FieldsAdded))
		assert.Empty(t, updated.ChangeDescription.FieldsDeleted)

		got, err := c.Pipelines.Get(ctx, pipeline.ID, "tasks")
		require.NoError(t, err)
		require.Len(t, got.Tasks, 2)
		assert.Equal(t, "extract", got.Tasks[0].Name)
		assert.Equal(t, "curated", got.Tasks[0].Description)
		assert.Equal(t, "load", got.Tasks[1].Name)

		// a later put without the task does not remove it
		req = pipelineRequest(service, "etl", domain.Task{Name: "load"})
		_, _, err = c.Pipelines.CreateOrUpdate(ctx, req.ToEntity())
		require.NoError(t, err)
		got, err = c.Pipelines.Get(ctx, pipeline.ID, "tasks")
		require.NoError(t, err)
		assert.Len(t, got.Tasks, 2)
	})
}

func TestDeletePipelineService(t *testing.T) {
	c := newTestCatalog(t)
	ctx := adminContext()
	service := createPipelineService(t, c, "airflow")
	pipeline, err := c.Pipelines.Create(ctx, pipelineRequest(service, "etl").ToEntity())
	require.NoError(t, err)

	_, err = c.PipelineServices.Delete(ctx, service.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
	assert.Contains(t, err.Error(), "PipelineService is not empty")

	_, err = c.Pipelines.Delete(ctx, pipeline.ID)
	require.NoError(t, err)
	_, err = c.Pipelines.Get(ctx, pipeline.ID, "")
	assert.True(t, apperror.IsNotFound(err))

	_, err = c.PipelineServices.Delete(ctx, service.ID)
	require.NoError(t, err)
}
