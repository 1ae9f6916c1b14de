package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		version  float64
		major    bool
		expected float64
	}{
		{name: "initial minor", version: InitialVersion, expected: 0.2},
		{name: "minor rounds", version: 0.7, expected: 0.8},
		{name: "many minors", version: 2.9, expected: 3.0},
		{name: "initial major", version: InitialVersion, major: true, expected: 1.1},
		{name: "major", version: 1.3, major: true, expected: 2.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got float64
			if tt.major {
				got = NextMajorVersion(tt.version)
			} else {
				got = NextMinorVersion(tt.version)
			}
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("repeated minor bumps stay on one decimal", func(t *testing.T) {
		v := InitialVersion
		for i := 0; i < 20; i++ {
			v = NextMinorVersion(v)
		}
		assert.Equal(t, 2.1, v)
	})
}

func TestParseFields(t *testing.T) {
	t.Run("empty parameter", func(t *testing.T) {
		fields, err := ParseFields(PipelineFields, "")
		require.NoError(t, err)
		assert.Empty(t, fields)
	})

	t.Run("known fields", func(t *testing.T) {
		fields, err := ParseFields(PipelineFields, "owner, tasks")
		require.NoError(t, err)
		assert.True(t, fields.Contains(FieldOwner))
		assert.True(t, fields.Contains(FieldTasks))
		assert.False(t, fields.Contains(FieldTags))
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := ParseFields(PipelineFields, "owner,columns")
		require.Error(t, err)
		assert.Equal(t, "Invalid field name columns", err.Error())
	})
}

func TestFQN(t *testing.T) {
	assert.Equal(t, "airflow.dag", BuildFQN("airflow", "dag"))
	assert.Equal(t, "mysql.db.", FQNPrefix("mysql.db"))
	assert.Equal(t, "mysql.db", ParentFQN("mysql.db.orders"))
	assert.Equal(t, "", ParentFQN("glossary"))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Glossary", Title(EntityGlossary))
	assert.Equal(t, "PipelineService", Title(EntityPipelineService))
	assert.Equal(t, "", Title(""))
}

func TestMergeTagLabels(t *testing.T) {
	existing := []TagLabel{{TagFQN: "PII.Sensitive"}, {TagFQN: "Tier.Tier1"}}
	incoming := []TagLabel{{TagFQN: "Tier.Tier1"}, {TagFQN: "PersonalData.Personal"}}

	merged := MergeTagLabels(existing, incoming)
	require.Len(t, merged, 3)
	assert.Equal(t, "PII.Sensitive", merged[0].TagFQN)
	assert.Equal(t, "PersonalData.Personal", merged[2].TagFQN)

	assert.True(t, TagLabelsEqual(existing, []TagLabel{{TagFQN: "Tier.Tier1"}, {TagFQN: "PII.Sensitive"}}))
	assert.False(t, TagLabelsEqual(existing, incoming))
}

func TestEventFilter(t *testing.T) {
	now := time.Now()
	filter := EventFilter{
		EntityTypes: map[EventType][]string{
			EventEntityCreated: {"*"},
			EventEntityUpdated: {EntityPipeline},
		},
		Since: now.Add(-time.Minute),
	}

	assert.True(t, filter.Matches(&ChangeEvent{EventType: EventEntityCreated, EntityType: EntityTable, DateTime: now}))
	assert.True(t, filter.Matches(&ChangeEvent{EventType: EventEntityUpdated, EntityType: EntityPipeline, DateTime: now}))
	assert.False(t, filter.Matches(&ChangeEvent{EventType: EventEntityUpdated, EntityType: EntityTable, DateTime: now}))
	assert.False(t, filter.Matches(&ChangeEvent{EventType: EventEntityDeleted, EntityType: EntityTable, DateTime: now}))
	assert.False(t, filter.Matches(&ChangeEvent{EventType: EventEntityCreated, EntityType: EntityTable, DateTime: now.Add(-time.Hour)}))
}

func TestChangeDescriptionIsEmpty(t *testing.T) {
	var nilChange *ChangeDescription
	assert.True(t, nilChange.IsEmpty())

	change := NewChangeDescription(0.1)
	assert.True(t, change.IsEmpty())

	change.FieldsAdded = append(change.FieldsAdded, FieldChange{Name: "description", NewValue: "x"})
	assert.False(t, change.IsEmpty())
}
