// Package loader upserts the content of a seed file into the catalog.
package loader

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"metacatalog/internal/apperror"
	"metacatalog/internal/auth"
	"metacatalog/internal/codec"
	"metacatalog/internal/domain"
	"metacatalog/internal/service"
)

// DefaultPrincipal is recorded as updatedBy when the context names nobody
const DefaultPrincipal = "seed"

// Result counts what a load did
type Result struct {
	Created int
	Updated int
	Tags    int
}

func (r Result) String() string {
	return fmt.Sprintf("%d created, %d upserted, %d tags added", r.Created, r.Updated, r.Tags)
}

// Loader applies seeds to a catalog
type Loader struct {
	catalog  *service.Catalog
	logger   *zap.Logger
	validate *validator.Validate
}

// New creates a loader
func New(catalog *service.Catalog, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		catalog:  catalog,
		logger:   logger.Named("loader"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// LoadFile parses the seed at path, JSON or YAML by extension, and loads it
func (l *Loader) LoadFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open seed: %w", err)
	}
	defer f.Close()

	seed, err := codec.ForPath(path).Parse(f)
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse seed %s: %w", path, err)
	}
	result, err := l.Load(ctx, seed)
	if err != nil {
		return result, fmt.Errorf("failed to load seed %s: %w", path, err)
	}
	l.logger.Info("seed loaded", zap.String("path", path), zap.Stringer("result", result))
	return result, nil
}

// Load upserts every entry of the seed. Users come first so teams can name
// them; entries already present are updated in place.
func (l *Loader) Load(ctx context.Context, seed *domain.Seed) (Result, error) {
	if auth.Principal(ctx) == "" {
		ctx = auth.WithPrincipal(ctx, DefaultPrincipal)
	}
	var result Result

	for i := range seed.Users {
		req := &seed.Users[i]
		if err := l.check(req); err != nil {
			return result, fmt.Errorf("user %q: %w", req.Name, err)
		}
		if err := upsert(ctx, l.catalog.Users, req.ToEntity(), &result); err != nil {
			return result, fmt.Errorf("user %q: %w", req.Name, err)
		}
	}

	for _, team := range seed.Teams {
		if err := l.check(&team); err != nil {
			return result, fmt.Errorf("team %q: %w", team.Name, err)
		}
		req, err := l.teamRequest(ctx, team)
		if err != nil {
			return result, fmt.Errorf("team %q: %w", team.Name, err)
		}
		if err := upsert(ctx, l.catalog.Teams, req.ToEntity(), &result); err != nil {
			return result, fmt.Errorf("team %q: %w", team.Name, err)
		}
	}

	for i := range seed.TagCategories {
		if err := l.loadCategory(ctx, &seed.TagCategories[i], &result); err != nil {
			return result, fmt.Errorf("tag category %q: %w", seed.TagCategories[i].Name, err)
		}
	}

	for i := range seed.PipelineServices {
		req := &seed.PipelineServices[i]
		if err := l.check(req); err != nil {
			return result, fmt.Errorf("pipeline service %q: %w", req.Name, err)
		}
		if err := upsert(ctx, l.catalog.PipelineServices, req.ToEntity(), &result); err != nil {
			return result, fmt.Errorf("pipeline service %q: %w", req.Name, err)
		}
	}

	for i := range seed.DatabaseServices {
		req := &seed.DatabaseServices[i]
		if err := l.check(req); err != nil {
			return result, fmt.Errorf("database service %q: %w", req.Name, err)
		}
		if err := upsert(ctx, l.catalog.DatabaseServices, req.ToEntity(), &result); err != nil {
			return result, fmt.Errorf("database service %q: %w", req.Name, err)
		}
	}

	for i := range seed.Glossaries {
		req := &seed.Glossaries[i]
		if err := l.check(req); err != nil {
			return result, fmt.Errorf("glossary %q: %w", req.Name, err)
		}
		if err := upsert(ctx, l.catalog.Glossaries, req.ToEntity(), &result); err != nil {
			return result, fmt.Errorf("glossary %q: %w", req.Name, err)
		}
	}

	return result, nil
}

func upsert[T domain.Entity](ctx context.Context, repo *service.Repository[T], e T, result *Result) error {
	_, created, err := repo.CreateOrUpdate(ctx, e)
	if err != nil {
		return err
	}
	if created {
		result.Created++
	} else {
		result.Updated++
	}
	return nil
}

// teamRequest resolves member names to user ids
func (l *Loader) teamRequest(ctx context.Context, team domain.SeedTeam) (*domain.CreateTeam, error) {
	req := &domain.CreateTeam{
		Name:        team.Name,
		DisplayName: team.DisplayName,
		Description: team.Description,
	}
	if team.Users == nil {
		return req, nil
	}
	req.Users = make([]uuid.UUID, 0, len(team.Users))
	for _, name := range team.Users {
		user, err := l.catalog.Users.GetByName(ctx, name, "")
		if err != nil {
			return nil, err
		}
		req.Users = append(req.Users, user.ID)
	}
	return req, nil
}

// loadCategory creates the category when it is missing, otherwise updates
// it, then adds the tags it does not have yet. Tags are never removed.
func (l *Loader) loadCategory(ctx context.Context, category *domain.TagCategory, result *Result) error {
	tags := l.catalog.Tags
	_, err := tags.GetCategory(ctx, category.Name)
	switch {
	case apperror.IsNotFound(err):
		if _, err := tags.CreateCategory(ctx, category); err != nil {
			return err
		}
		result.Created++
		result.Tags += countTags(category.Children)
		return nil
	case err != nil:
		return err
	}

	if _, err := tags.UpdateCategory(ctx, category.Name, category); err != nil {
		return err
	}
	result.Updated++
	return l.loadTags(ctx, category.Name, category.Children, result)
}

func (l *Loader) loadTags(ctx context.Context, parentFQN string, children []domain.Tag, result *Result) error {
	tags := l.catalog.Tags
	for i := range children {
		tag := children[i]
		fqn := domain.BuildFQN(parentFQN, tag.Name)
		_, err := tags.GetTag(ctx, fqn)
		switch {
		case apperror.IsNotFound(err):
			if _, err := tags.CreateTag(ctx, parentFQN, &tag); err != nil {
				return err
			}
			result.Tags += countTags([]domain.Tag{children[i]})
			continue
		case err != nil:
			return err
		}
		if _, err := tags.UpdateTag(ctx, fqn, &tag); err != nil {
			return err
		}
		if err := l.loadTags(ctx, fqn, tag.Children, result); err != nil {
			return err
		}
	}
	return nil
}

func countTags(tags []domain.Tag) int {
	n := 0
	for _, t := range tags {
		n += 1 + countTags(t.Children)
	}
	return n
}

func (l *Loader) check(req any) error {
	if err := l.validate.Struct(req); err != nil {
		return apperror.Validation("invalid seed entry: %v", err)
	}
	return nil
}
