package service

import (
	"reflect"
	"time"

	"metacatalog/internal/domain"
)

// updater accumulates the field level diff between a stored entity and its
// replacement
type updater struct {
	change *domain.ChangeDescription
	major  bool
}

func newUpdater(previousVersion float64) *updater {
	return &updater{change: domain.NewChangeDescription(previousVersion)}
}

// recordChange records a change when orig and updated differ
func (u *updater) recordChange(field string, orig, updated any) bool {
	return u.record(field, orig, updated, reflect.DeepEqual(orig, updated))
}

// record files the change as added, deleted or updated depending on which side
// is empty. same reports whether the caller considers both values equal.
func (u *updater) record(field string, orig, updated any, same bool) bool {
	origEmpty, updatedEmpty := isEmpty(orig), isEmpty(updated)
	if same || (origEmpty && updatedEmpty) {
		return false
	}

	switch {
	case origEmpty:
		u.change.FieldsAdded = append(u.change.FieldsAdded, domain.FieldChange{Name: field, NewValue: updated})
	case updatedEmpty:
		u.change.FieldsDeleted = append(u.change.FieldsDeleted, domain.FieldChange{Name: field, OldValue: orig})
	default:
		u.change.FieldsUpdated = append(u.change.FieldsUpdated, domain.FieldChange{Name: field, OldValue: orig, NewValue: updated})
	}
	return true
}

func (u *updater) markMajor() {
	u.major = true
}

func (u *updater) changed() bool {
	return !u.change.IsEmpty()
}

// nextVersion returns the version the updated entity gets
func (u *updater) nextVersion(current float64) float64 {
	if u.major {
		return domain.NextMajorVersion(current)
	}
	return domain.NextMinorVersion(current)
}

// recordListChange diffs two lists element wise. Elements of updated with no
// match in orig are added, elements of orig with no match in updated are
// deleted.
func recordListChange[E any](u *updater, field string, orig, updated []E, match func(a, b E) bool) (added, deleted []E) {
	for _, n := range updated {
		if !containsMatch(orig, n, match) {
			added = append(added, n)
		}
	}
	for _, o := range orig {
		if !containsMatch(updated, o, match) {
			deleted = append(deleted, o)
		}
	}

	if len(added) > 0 {
		u.change.FieldsAdded = append(u.change.FieldsAdded, domain.FieldChange{Name: field, NewValue: added})
	}
	if len(deleted) > 0 {
		u.change.FieldsDeleted = append(u.change.FieldsDeleted, domain.FieldChange{Name: field, OldValue: deleted})
	}
	return added, deleted
}

func containsMatch[E any](list []E, e E, match func(a, b E) bool) bool {
	for _, candidate := range list {
		if match(candidate, e) {
			return true
		}
	}
	return false
}

func findMatch[E any](list []E, e E, match func(a, b E) bool) (E, bool) {
	for _, candidate := range list {
		if match(candidate, e) {
			return candidate, true
		}
	}
	var zero E
	return zero, false
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

func tagLabelMatch(a, b domain.TagLabel) bool {
	return a.TagFQN == b.TagFQN
}

func referenceMatch(a, b domain.EntityReference) bool {
	return a.ID == b.ID
}

func sameReference(a, b *domain.EntityReference) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
