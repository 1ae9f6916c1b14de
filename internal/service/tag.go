package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"metacatalog/internal/apperror"
	"metacatalog/internal/domain"
	"metacatalog/internal/repository"
)

// maxTagDepth is category.primary.secondary
const maxTagDepth = 3

// TagService manages tag categories, tags and the labels applied to entities
type TagService struct {
	c *Catalog
}

// ListCategories returns every category with its tags and usage counts
func (s *TagService) ListCategories(ctx context.Context) ([]domain.TagCategory, error) {
	categories := []domain.TagCategory{}
	err := s.run(ctx, "listCategories", func(tx repository.Tx) error {
		stored, err := tx.Tags().ListCategories(ctx)
		if err != nil {
			return err
		}
		for i := range stored {
			if err := s.hydrateCategory(ctx, tx, &stored[i]); err != nil {
				return err
			}
			categories = append(categories, stored[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// GetCategory returns one category with its tags
func (s *TagService) GetCategory(ctx context.Context, name string) (*domain.TagCategory, error) {
	var category *domain.TagCategory
	err := s.run(ctx, "getCategory", func(tx repository.Tx) error {
		var err error
		category, err = s.findCategory(ctx, tx, name)
		if err != nil {
			return err
		}
		return s.hydrateCategory(ctx, tx, category)
	})
	return category, err
}

// CreateCategory stores a category and any tags declared under it
func (s *TagService) CreateCategory(ctx context.Context, category *domain.TagCategory) (*domain.TagCategory, error) {
	if err := validateTagName(category.Name); err != nil {
		return nil, err
	}
	if category.CategoryType == "" {
		category.CategoryType = domain.CategoryDescriptive
	}
	err := s.run(ctx, "createCategory", func(tx repository.Tx) error {
		if err := tx.Tags().InsertCategory(ctx, category); err != nil {
			return err
		}
		if err := s.createChildren(ctx, tx, category.Name, category.Children); err != nil {
			return err
		}
		return s.hydrateCategory(ctx, tx, category)
	})
	if err != nil {
		return nil, err
	}
	s.c.logger.Info("tag category created", zap.String("category", category.Name))
	return category, nil
}

// UpdateCategory replaces the description and type of a category. Its name
// is taken from the path and cannot change.
func (s *TagService) UpdateCategory(ctx context.Context, name string, category *domain.TagCategory) (*domain.TagCategory, error) {
	var updated *domain.TagCategory
	err := s.run(ctx, "updateCategory", func(tx repository.Tx) error {
		stored, err := s.findCategory(ctx, tx, name)
		if err != nil {
			return err
		}
		stored.Description = category.Description
		if category.CategoryType != "" {
			stored.CategoryType = category.CategoryType
		}
		if err := tx.Tags().UpdateCategory(ctx, name, stored); err != nil {
			return err
		}
		updated = stored
		return s.hydrateCategory(ctx, tx, updated)
	})
	return updated, err
}

// GetTag returns the tag with the given FQN and its children
func (s *TagService) GetTag(ctx context.Context, fqn string) (*domain.Tag, error) {
	var tag *domain.Tag
	err := s.run(ctx, "getTag", func(tx repository.Tx) error {
		var err error
		tag, err = s.findTag(ctx, tx, fqn)
		if err != nil {
			return err
		}
		return s.hydrateTag(ctx, tx, tag)
	})
	return tag, err
}

// CreateTag stores tag under parentFQN, which is a category or a primary tag
func (s *TagService) CreateTag(ctx context.Context, parentFQN string, tag *domain.Tag) (*domain.Tag, error) {
	if err := validateTagName(tag.Name); err != nil {
		return nil, err
	}
	err := s.run(ctx, "createTag", func(tx repository.Tx) error {
		if err := s.checkParent(ctx, tx, parentFQN); err != nil {
			return err
		}
		if err := s.createTag(ctx, tx, parentFQN, tag); err != nil {
			return err
		}
		return s.hydrateTag(ctx, tx, tag)
	})
	if err != nil {
		return nil, err
	}
	s.c.logger.Info("tag created", zap.String("tag", tag.FullyQualifiedName))
	return tag, nil
}

// UpdateTag replaces the mutable attributes of a tag
func (s *TagService) UpdateTag(ctx context.Context, fqn string, tag *domain.Tag) (*domain.Tag, error) {
	var updated *domain.Tag
	err := s.run(ctx, "updateTag", func(tx repository.Tx) error {
		stored, err := s.findTag(ctx, tx, fqn)
		if err != nil {
			return err
		}
		if err := s.checkAssociated(ctx, tx, tag.AssociatedTags); err != nil {
			return err
		}
		stored.Description = tag.Description
		stored.AssociatedTags = tag.AssociatedTags
		stored.Deprecated = tag.Deprecated
		if err := tx.Tags().UpdateTag(ctx, fqn, stored); err != nil {
			return err
		}
		updated = stored
		return s.hydrateTag(ctx, tx, updated)
	})
	return updated, err
}

func (s *TagService) createChildren(ctx context.Context, tx repository.Tx, parentFQN string, children []domain.Tag) error {
	for i := range children {
		if err := validateTagName(children[i].Name); err != nil {
			return err
		}
		if err := s.createTag(ctx, tx, parentFQN, &children[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *TagService) createTag(ctx context.Context, tx repository.Tx, parentFQN string, tag *domain.Tag) error {
	tag.FullyQualifiedName = domain.BuildFQN(parentFQN, tag.Name)
	if strings.Count(tag.FullyQualifiedName, domain.FQNSeparator) >= maxTagDepth {
		return apperror.Validation("Tags can only be nested %d levels deep", maxTagDepth-1)
	}
	if err := s.checkAssociated(ctx, tx, tag.AssociatedTags); err != nil {
		return err
	}
	if err := tx.Tags().InsertTag(ctx, tag); err != nil {
		return err
	}
	return s.createChildren(ctx, tx, tag.FullyQualifiedName, tag.Children)
}

// checkParent verifies a category or primary tag exists at fqn
func (s *TagService) checkParent(ctx context.Context, tx repository.Tx, fqn string) error {
	if !strings.Contains(fqn, domain.FQNSeparator) {
		_, err := s.findCategory(ctx, tx, fqn)
		return err
	}
	_, err := s.findTag(ctx, tx, fqn)
	return err
}

func (s *TagService) checkAssociated(ctx context.Context, tx repository.Tx, associated []string) error {
	for _, fqn := range associated {
		if _, err := s.findTag(ctx, tx, fqn); err != nil {
			return err
		}
	}
	return nil
}

func (s *TagService) findCategory(ctx context.Context, tx repository.Tx, name string) (*domain.TagCategory, error) {
	category, err := tx.Tags().GetCategory(ctx, name)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, apperror.NotFound("TagCategory", name)
	}
	return category, nil
}

func (s *TagService) findTag(ctx context.Context, tx repository.Tx, fqn string) (*domain.Tag, error) {
	tag, err := tx.Tags().GetTag(ctx, fqn)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, apperror.NotFound("Tag", fqn)
	}
	return tag, nil
}

func (s *TagService) hydrateCategory(ctx context.Context, tx repository.Tx, category *domain.TagCategory) error {
	category.Href = s.href(category.Name)
	count, err := tx.Tags().UsageCount(ctx, category.Name)
	if err != nil {
		return err
	}
	category.UsageCount = count
	category.Children, err = s.children(ctx, tx, category.Name)
	return err
}

func (s *TagService) hydrateTag(ctx context.Context, tx repository.Tx, tag *domain.Tag) error {
	tag.Href = s.href(tag.FullyQualifiedName)
	count, err := tx.Tags().UsageCount(ctx, tag.FullyQualifiedName)
	if err != nil {
		return err
	}
	tag.UsageCount = count
	tag.Children, err = s.children(ctx, tx, tag.FullyQualifiedName)
	return err
}

func (s *TagService) children(ctx context.Context, tx repository.Tx, parentFQN string) ([]domain.Tag, error) {
	children, err := tx.Tags().ListChildren(ctx, parentFQN)
	if err != nil {
		return nil, err
	}
	for i := range children {
		if err := s.hydrateTag(ctx, tx, &children[i]); err != nil {
			return nil, err
		}
	}
	return children, nil
}

// withDerived validates labels and adds a Derived label for every tag
// associated with a labelled tag
func (s *TagService) withDerived(ctx context.Context, tx repository.Tx, labels []domain.TagLabel) ([]domain.TagLabel, error) {
	if len(labels) == 0 {
		return labels, nil
	}
	result := make([]domain.TagLabel, 0, len(labels))
	var derived []domain.TagLabel
	for _, label := range labels {
		label.Normalize()
		tag, err := s.findTag(ctx, tx, label.TagFQN)
		if err != nil {
			return nil, err
		}
		label.Href = s.href(label.TagFQN)
		result = append(result, label)
		for _, fqn := range tag.AssociatedTags {
			derived = append(derived, domain.TagLabel{
				TagFQN:    fqn,
				LabelType: domain.LabelDerived,
				State:     domain.StateConfirmed,
				Href:      s.href(fqn),
			})
		}
	}
	return domain.MergeTagLabels(result, derived), nil
}

func (s *TagService) applyTags(ctx context.Context, tx repository.Tx, labels []domain.TagLabel, targetFQN string) error {
	for _, label := range labels {
		if err := tx.Tags().ApplyTag(ctx, label, targetFQN); err != nil {
			return err
		}
	}
	return nil
}

// getTags reads the labels applied to targetFQN; nil when there are none
func (s *TagService) getTags(ctx context.Context, tx repository.Tx, targetFQN string) ([]domain.TagLabel, error) {
	labels, err := tx.Tags().GetTags(ctx, targetFQN)
	if err != nil || len(labels) == 0 {
		return nil, err
	}
	for i := range labels {
		labels[i].Href = s.href(labels[i].TagFQN)
	}
	return labels, nil
}

func (s *TagService) href(fqn string) string {
	return s.c.opts.BaseURL + "/api/v1/tags/" + strings.ReplaceAll(fqn, domain.FQNSeparator, "/")
}

func (s *TagService) run(ctx context.Context, op string, fn func(tx repository.Tx) error) error {
	err := s.c.store.InTx(ctx, fn)
	if err != nil {
		err = storeError("tag "+op, err)
		if apperror.IsConflict(err) {
			err = apperror.Conflict("Tag already exists")
		}
	}
	return err
}

func validateTagName(name string) error {
	if name == "" {
		return apperror.Validation("name must not be null")
	}
	if strings.Contains(name, domain.FQNSeparator) {
		return apperror.Validation("Tag name %s must not contain %q", name, domain.FQNSeparator)
	}
	return nil
}
