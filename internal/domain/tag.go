package domain

// LabelType describes how a tag label got attached to an entity
type LabelType string

const (
	LabelManual     LabelType = "Manual"
	LabelPropagated LabelType = "Propagated"
	LabelAutomated  LabelType = "Automated"
	LabelDerived    LabelType = "Derived"
)

// LabelState is the review state of a tag label
type LabelState string

const (
	StateSuggested LabelState = "Suggested"
	StateConfirmed LabelState = "Confirmed"
)

// TagLabel is a tag applied to an entity or column
type TagLabel struct {
	TagFQN    string     `json:"tagFQN" yaml:"tagFQN" validate:"required"`
	LabelType LabelType  `json:"labelType,omitempty" yaml:"labelType,omitempty"`
	State     LabelState `json:"state,omitempty" yaml:"state,omitempty"`
	Href      string     `json:"href,omitempty" yaml:"href,omitempty"`
}

// Normalize fills in the default label type and state
func (l *TagLabel) Normalize() {
	if l.LabelType == "" {
		l.LabelType = LabelManual
	}
	if l.State == "" {
		l.State = StateConfirmed
	}
}

// CategoryType is the kind of tag category
type CategoryType string

const (
	CategoryDescriptive    CategoryType = "Descriptive"
	CategoryClassification CategoryType = "Classification"
)

// TagCategory groups tags under a common first FQN segment
type TagCategory struct {
	Name         string       `json:"name" yaml:"name"`
	Description  string       `json:"description" yaml:"description"`
	CategoryType CategoryType `json:"categoryType" yaml:"categoryType"`
	Href         string       `json:"href,omitempty" yaml:"href,omitempty"`
	UsageCount   int          `json:"usageCount" yaml:"-"`
	Children     []Tag        `json:"children,omitempty" yaml:"children,omitempty"`
}

// Tag is a single tag, addressed by category.tag[.child]
type Tag struct {
	Name               string   `json:"name" yaml:"name"`
	FullyQualifiedName string   `json:"fullyQualifiedName,omitempty" yaml:"-"`
	Description        string   `json:"description" yaml:"description"`
	AssociatedTags     []string `json:"associatedTags,omitempty" yaml:"associatedTags,omitempty"`
	Deprecated         bool     `json:"deprecated" yaml:"deprecated,omitempty"`
	Href               string   `json:"href,omitempty" yaml:"-"`
	UsageCount         int      `json:"usageCount" yaml:"-"`
	Children           []Tag    `json:"children,omitempty" yaml:"children,omitempty"`
}

// TagLabelsEqual reports whether two label lists name the same tags
func TagLabelsEqual(a, b []TagLabel) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, l := range a {
		seen[l.TagFQN] = true
	}
	for _, l := range b {
		if !seen[l.TagFQN] {
			return false
		}
	}
	return true
}

// MergeTagLabels returns existing plus any label from incoming not already present
func MergeTagLabels(existing, incoming []TagLabel) []TagLabel {
	merged := make([]TagLabel, 0, len(existing)+len(incoming))
	seen := make(map[string]bool)
	for _, list := range [][]TagLabel{existing, incoming} {
		for _, l := range list {
			if seen[l.TagFQN] {
				continue
			}
			seen[l.TagFQN] = true
			merged = append(merged, l)
		}
	}
	return merged
}
