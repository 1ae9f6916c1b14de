package service

import (
	"context"

	"metacatalog/internal/domain"
	"metacatalog/internal/repository"
)

// pipelineHooks places pipelines under their pipeline service. Tasks are
// merged by name on update, so a task once reported is never dropped.
type pipelineHooks struct {
	noHooks[*domain.Pipeline]
	c *Catalog
}

func (h *pipelineHooks) prepare(ctx context.Context, tx repository.Tx, p *domain.Pipeline) error {
	service, err := h.c.resolveReference(ctx, tx, "service", p.Service, domain.EntityPipelineService)
	if err != nil {
		return err
	}
	stored, err := loadEntity[domain.PipelineService](ctx, tx, domain.EntityPipelineService, service.ID)
	if err != nil {
		return err
	}
	p.Service = service
	p.ServiceType = string(stored.ServiceType)
	p.FullyQualifiedName = domain.BuildFQN(service.Name, p.Name)
	for _, task := range p.Tasks {
		if err := checkName("task", task.Name); err != nil {
			return err
		}
	}
	return nil
}

func (h *pipelineHooks) setFields(ctx context.Context, tx repository.Tx, p *domain.Pipeline, fields domain.Fields) error {
	service, err := h.c.containerOf(ctx, tx, p.ID, domain.EntityPipelineService)
	if err != nil {
		return err
	}
	p.Service = service
	if !fields.Contains(domain.FieldTasks) {
		p.Tasks = nil
	}
	return nil
}

func (h *pipelineHooks) strip(p *domain.Pipeline) func() {
	service := p.Service
	p.Service = nil
	return func() { p.Service = service }
}

func (h *pipelineHooks) storeRelationships(ctx context.Context, tx repository.Tx, p *domain.Pipeline) error {
	return containedIn(ctx, tx, p.Service, p.Reference(domain.EntityPipeline))
}

func (h *pipelineHooks) restorePatchAttributes(orig, patched *domain.Pipeline) {
	patched.Service = orig.Service
	patched.ServiceType = orig.ServiceType
}

// mergeForPut keeps task descriptions already curated in the catalog
func (h *pipelineHooks) mergeForPut(stored, incoming *domain.Pipeline) {
	for i := range incoming.Tasks {
		if task, ok := findMatch(stored.Tasks, incoming.Tasks[i], taskMatch); ok && task.Description != "" {
			incoming.Tasks[i].Description = task.Description
		}
	}
}

func (h *pipelineHooks) updateSpecific(_ context.Context, _ repository.Tx, u *updater, orig, upd *domain.Pipeline) error {
	u.recordChange("pipelineUrl", orig.PipelineURL, upd.PipelineURL)
	u.record("concurrency", orig.Concurrency, upd.Concurrency, sameInt(orig.Concurrency, upd.Concurrency))
	u.recordChange("pipelineLocation", orig.PipelineLocation, upd.PipelineLocation)
	u.record("startDate", orig.StartDate, upd.StartDate, sameTime(orig.StartDate, upd.StartDate))
	updateTasks(u, orig, upd)
	return nil
}

func updateTasks(u *updater, orig, upd *domain.Pipeline) {
	merged := mergeTasks(orig.Tasks, upd.Tasks)
	recordListChange(u, domain.FieldTasks, orig.Tasks, merged, taskMatch)

	for _, task := range merged {
		stored, ok := findMatch(orig.Tasks, task, taskMatch)
		if !ok {
			continue
		}
		field := domain.BuildFQN(domain.FieldTasks, task.Name)
		u.recordChange(field+".description", stored.Description, task.Description)
		u.recordChange(field+".displayName", stored.DisplayName, task.DisplayName)
		u.recordChange(field+".taskUrl", stored.TaskURL, task.TaskURL)
		u.recordChange(field+".taskType", stored.TaskType, task.TaskType)
		u.recordChange(field+".downstreamTasks", stored.DownstreamTasks, task.DownstreamTasks)
		recordListChange(u, field+".tags", stored.Tags, task.Tags, tagLabelMatch)
	}
	upd.Tasks = merged
}

// mergeTasks returns the stored tasks, replaced by their updated version
// where one exists, followed by the tasks that are new
func mergeTasks(stored, updated []domain.Task) []domain.Task {
	if len(stored) == 0 {
		return updated
	}
	merged := make([]domain.Task, 0, len(stored)+len(updated))
	for _, task := range stored {
		if replacement, ok := findMatch(updated, task, taskMatch); ok {
			task = replacement
		}
		merged = append(merged, task)
	}
	for _, task := range updated {
		if !containsMatch(stored, task, taskMatch) {
			merged = append(merged, task)
		}
	}
	return merged
}

func taskMatch(a, b domain.Task) bool {
	return a.Name == b.Name
}
