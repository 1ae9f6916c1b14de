package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"metacatalog/internal/domain"
	"metacatalog/internal/repository"
)

type tagDAO struct {
	tx *sql.Tx
}

// InsertCategory stores a new tag category; children are stored as tags
func (d *tagDAO) InsertCategory(ctx context.Context, category *domain.TagCategory) error {
	data, err := marshalCategory(category)
	if err != nil {
		return err
	}

	_, err = d.tx.ExecContext(ctx, `INSERT INTO tag_category (name, json) VALUES (?, ?)`, category.Name, data)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("failed to insert tag category %s: %w", category.Name, repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert tag category: %w", err)
	}
	return nil
}

// UpdateCategory replaces a category, renaming it when the name changed
func (d *tagDAO) UpdateCategory(ctx context.Context, name string, category *domain.TagCategory) error {
	data, err := marshalCategory(category)
	if err != nil {
		return err
	}

	_, err = d.tx.ExecContext(ctx, `UPDATE tag_category SET name = ?, json = ? WHERE name = ?`, category.Name, data, name)
	if err != nil {
		return fmt.Errorf("failed to update tag category: %w", err)
	}
	return nil
}

func marshalCategory(category *domain.TagCategory) (string, error) {
	stored := *category
	stored.Children = nil
	stored.UsageCount = 0
	data, err := json.Marshal(&stored)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tag category: %w", err)
	}
	return string(data), nil
}

// GetCategory retrieves a category without its children
func (d *tagDAO) GetCategory(ctx context.Context, name string) (*domain.TagCategory, error) {
	var data []byte
	err := d.tx.QueryRowContext(ctx, `SELECT json FROM tag_category WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tag category: %w", err)
	}

	category := &domain.TagCategory{}
	if err := json.Unmarshal(data, category); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tag category: %w", err)
	}
	return category, nil
}

// ListCategories returns all categories ordered by name
func (d *tagDAO) ListCategories(ctx context.Context) ([]domain.TagCategory, error) {
	rows, err := d.tx.QueryContext(ctx, `SELECT json FROM tag_category ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tag categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.TagCategory
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan tag category: %w", err)
		}
		var category domain.TagCategory
		if err := json.Unmarshal(data, &category); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tag category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag categories: %w", err)
	}
	return categories, nil
}

// InsertTag stores a new tag under its parent FQN
func (d *tagDAO) InsertTag(ctx context.Context, tag *domain.Tag) error {
	data, err := marshalTag(tag)
	if err != nil {
		return err
	}

	_, err = d.tx.ExecContext(ctx, `INSERT INTO tag (fqn, parent, json) VALUES (?, ?, ?)`,
		tag.FullyQualifiedName, domain.ParentFQN(tag.FullyQualifiedName), data)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("failed to insert tag %s: %w", tag.FullyQualifiedName, repository.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert tag: %w", err)
	}
	return nil
}

// UpdateTag replaces a tag, moving it when its FQN changed
func (d *tagDAO) UpdateTag(ctx context.Context, fqn string, tag *domain.Tag) error {
	data, err := marshalTag(tag)
	if err != nil {
		return err
	}

	_, err = d.tx.ExecContext(ctx, `UPDATE tag SET fqn = ?, parent = ?, json = ? WHERE fqn = ?`,
		tag.FullyQualifiedName, domain.ParentFQN(tag.FullyQualifiedName), data, fqn)
	if err != nil {
		return fmt.Errorf("failed to update tag: %w", err)
	}
	return nil
}

func marshalTag(tag *domain.Tag) (string, error) {
	stored := *tag
	stored.Children = nil
	stored.UsageCount = 0
	data, err := json.Marshal(&stored)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tag: %w", err)
	}
	return string(data), nil
}

// GetTag retrieves a tag without its children
func (d *tagDAO) GetTag(ctx context.Context, fqn string) (*domain.Tag, error) {
	var data []byte
	err := d.tx.QueryRowContext(ctx, `SELECT json FROM tag WHERE fqn = ?`, fqn).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tag: %w", err)
	}

	tag := &domain.Tag{}
	if err := json.Unmarshal(data, tag); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tag: %w", err)
	}
	return tag, nil
}

// ListChildren returns the tags directly under parentFQN
func (d *tagDAO) ListChildren(ctx context.Context, parentFQN string) ([]domain.Tag, error) {
	rows, err := d.tx.QueryContext(ctx, `SELECT json FROM tag WHERE parent = ? ORDER BY fqn`, parentFQN)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		var tag domain.Tag
		if err := json.Unmarshal(data, &tag); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}

// ApplyTag records a tag usage; re-applying an existing label is a no-op
func (d *tagDAO) ApplyTag(ctx context.Context, label domain.TagLabel, targetFQN string) error {
	label.Normalize()
	_, err := d.tx.ExecContext(ctx, `
		INSERT INTO tag_usage (tag_fqn, target_fqn, label_type, state)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tag_fqn, target_fqn) DO NOTHING
	`, label.TagFQN, targetFQN, stringToNull(string(label.LabelType)), stringToNull(string(label.State)))
	if err != nil {
		return fmt.Errorf("failed to apply tag: %w", err)
	}
	return nil
}

// GetTags returns the labels applied to targetFQN ordered by tag FQN
func (d *tagDAO) GetTags(ctx context.Context, targetFQN string) ([]domain.TagLabel, error) {
	rows, err := d.tx.QueryContext(ctx,
		`SELECT `+tagUsageColumns+` FROM tag_usage WHERE target_fqn = ? ORDER BY tag_fqn`, targetFQN)
	if err != nil {
		return nil, fmt.Errorf("failed to query tag usage: %w", err)
	}
	defer rows.Close()

	var labels []domain.TagLabel
	for rows.Next() {
		var row tagUsageRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan tag usage: %w", err)
		}
		labels = append(labels, domain.TagLabel{
			TagFQN:    row.TagFQN,
			LabelType: domain.LabelType(nullToString(row.LabelType)),
			State:     domain.LabelState(nullToString(row.State)),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag usage: %w", err)
	}
	return labels, nil
}

// DeleteTags removes the labels applied to exactly targetFQN
func (d *tagDAO) DeleteTags(ctx context.Context, targetFQN string) error {
	if _, err := d.tx.ExecContext(ctx, `DELETE FROM tag_usage WHERE target_fqn = ?`, targetFQN); err != nil {
		return fmt.Errorf("failed to delete tag usage: %w", err)
	}
	return nil
}

// DeleteTagsByPrefix removes labels applied to fqn and anything nested under it
func (d *tagDAO) DeleteTagsByPrefix(ctx context.Context, fqn string) error {
	_, err := d.tx.ExecContext(ctx, `
		DELETE FROM tag_usage WHERE target_fqn = ? OR target_fqn LIKE ? ESCAPE '\'
	`, fqn, likePrefix(domain.FQNPrefix(fqn)))
	if err != nil {
		return fmt.Errorf("failed to delete tag usage: %w", err)
	}
	return nil
}

// UsageCount counts usages of a tag and of every tag nested under it
func (d *tagDAO) UsageCount(ctx context.Context, tagFQNPrefix string) (int, error) {
	var count int
	err := d.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tag_usage WHERE tag_fqn = ? OR tag_fqn LIKE ? ESCAPE '\'
	`, tagFQNPrefix, likePrefix(domain.FQNPrefix(tagFQNPrefix))).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tag usage: %w", err)
	}
	return count, nil
}
