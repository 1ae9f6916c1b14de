package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metacatalog/internal/apperror"
	"metacatalog/internal/domain"
)

func TestGlossaryTerms(t *testing.T) {
	c := newTestCatalog(t)
	ctx := adminContext()
	glossary := createGlossary(t, c, "business")

	req := &domain.CreateGlossaryTerm{
		Name:     "revenue",
		Synonyms: []string{"income"},
		Glossary: &domain.EntityReference{Name: "business", Type: domain.EntityGlossary},
	}
	term, err := c.GlossaryTerms.Create(ctx, req.ToEntity())
	require.NoError(t, err)
	assert.Equal(t, "business.revenue", term.FullyQualifiedName)
	require.NotNil(t, term.Glossary)
	assert.Equal(t, glossary.ID, term.Glossary.ID)

	t.Run("synonyms diff", func(t *testing.T) {
		patched, err := c.GlossaryTerms.Patch(ctx, term.ID, MergePatch, []byte(`{"synonyms": ["turnover"]}`))
		require.NoError(t, err)
		assert.Equal(t, 0.2, patched.Version)
		assert.Equal(t, []string{"synonyms"}, fieldNames(patched.ChangeDescription.FieldsAdded))
		assert.Equal(t, []string{"synonyms"}, fieldNames(patched.ChangeDescription.FieldsDeleted))
		require.NotNil(t, patched.Glossary)
		assert.Equal(t, glossary.ID, patched.Glossary.ID)
	})

	t.Run("unknown glossary", func(t *testing.T) {
		req := &domain.CreateGlossaryTerm{
			Name:     "cost",
			Glossary: &domain.EntityReference{Name: "missing"},
		}
		_, err := c.GlossaryTerms.Create(ctx, req.ToEntity())
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("non empty glossary cannot be deleted", func(t *testing.T) {
		_, err := c.Glossaries.Delete(ctx, glossary.ID)
		require.Error(t, err)
		assert.True(t, apperror.IsConflict(err))
		assert.Contains(t, err.Error(), "Glossary is not empty")

		got, err := c.Glossaries.Get(ctx, glossary.ID, "")
		require.NoError(t, err)
		assert.Equal(t, "business", got.Name)
	})

	t.Run("empty glossary is deleted", func(t *testing.T) {
		_, err := c.GlossaryTerms.Delete(ctx, term.ID)
		require.NoError(t, err)
		deleted, err := c.Glossaries.Delete(ctx, glossary.ID)
		require.NoError(t, err)
		assert.Equal(t, glossary.ID, deleted.ID)

		_, err = c.Glossaries.Get(ctx, glossary.ID, "")
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestOwnership(t *testing.T) {
	c := newTestCatalog(t)
	ctx := adminContext()
	alice := createUser(t, c, "alice")

	req := &domain.CreateGlossary{
		Name:  "owned",
		Owner: &domain.EntityReference{ID: alice.ID, Type: domain.EntityUser},
	}
	glossary, err := c.Glossaries.Create(ctx, req.ToEntity())
	require.NoError(t, err)
	require.NotNil(t, glossary.Owner)
	assert.Equal(t, "alice", glossary.Owner.Name)

	got, err := c.Glossaries.Get(ctx, glossary.ID, "owner")
	require.NoError(t, err)
	require.NotNil(t, got.Owner)
	assert.Equal(t, alice.ID, got.Owner.ID)

	user, err := c.Users.Get(ctx, alice.ID, "owns")
	require.NoError(t, err)
	require.Len(t, user.Owns, 1)
	assert.Equal(t, glossary.ID, user.Owns[0].ID)
	assert.Equal(t, domain.EntityGlossary, user.Owns[0].Type)

	t.Run("owner replaced", func(t *testing.T) {
		teamReq := &domain.CreateTeam{Name: "stewards"}
		team, err := c.Teams.Create(ctx, teamReq.ToEntity())
		require.NoError(t, err)

		patch := fmt.Sprintf(`{"owner": {"id": %q, "type": "team"}}`, team.ID)
		patched, err := c.Glossaries.Patch(ctx, glossary.ID, MergePatch, []byte(patch))
		require.NoError(t, err)
		require.NotNil(t, patched.Owner)
		assert.Equal(t, team.ID, patched.Owner.ID)
		assert.Equal(t, []string{"owner"}, fieldNames(patched.ChangeDescription.FieldsUpdated))

		user, err := c.Users.Get(ctx, alice.ID, "owns")
		require.NoError(t, err)
		assert.Empty(t, user.Owns)
		owner, err := c.Teams.Get(ctx, team.ID, "owns")
		require.NoError(t, err)
		require.Len(t, owner.Owns, 1)
		assert.Equal(t, glossary.ID, owner.Owns[0].ID)
	})

	t.Run("owner removed by patch", func(t *testing.T) {
		patched, err := c.Glossaries.Patch(ctx, glossary.ID, JSONPatch, []byte(`[{"op": "remove", "path": "/owner"}]`))
		require.NoError(t, err)
		assert.Nil(t, patched.Owner)
		assert.Equal(t, []string{"owner"}, fieldNames(patched.ChangeDescription.FieldsDeleted))

		user, err := c.Users.Get(ctx, alice.ID, "owns")
		require.NoError(t, err)
		assert.Empty(t, user.Owns)
	})

	t.Run("invalid owner type", func(t *testing.T) {
		req := &domain.CreateGlossary{
			Name:  "bad",
			Owner: &domain.EntityReference{ID: alice.ID, Type: domain.EntityTable},
		}
		_, err := c.Glossaries.Create(ctx, req.ToEntity())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid ownerType table")
	})
}

func TestFollowers(t *testing.T) {
	c := newTestCatalog(t)
	ctx := adminContext()
	alice := createUser(t, c, "alice")
	glossary := createGlossary(t, c, "business")

	event, err := c.Glossaries.AddFollower(ctx, glossary.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, domain.EventEntityUpdated, event.EventType)
	assert.Equal(t, []string{"followers"}, fieldNames(event.ChangeDescription.FieldsAdded))

	again, err := c.Glossaries.AddFollower(ctx, glossary.ID, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, again)

	got, err := c.Glossaries.Get(ctx, glossary.ID, "followers")
	require.NoError(t, err)
	require.Len(t, got.Followers, 1)
	assert.Equal(t, "alice", got.Followers[0].Name)
	assert.Equal(t, domain.InitialVersion, got.Version)

	user, err := c.Users.Get(ctx, alice.ID, "follows")
	require.NoError(t, err)
	require.Len(t, user.Follows, 1)
	assert.Equal(t, glossary.ID, user.Follows[0].ID)

	event, err = c.Glossaries.DeleteFollower(ctx, glossary.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, []string{"followers"}, fieldNames(event.ChangeDescription.FieldsDeleted))

	again, err = c.Glossaries.DeleteFollower(ctx, glossary.ID, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, again)

	_, err = c.Glossaries.AddFollower(ctx, glossary.ID, glossary.ID)
	assert.True(t, apperror.IsNotFound(err))
}
