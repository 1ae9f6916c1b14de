package service

import (
	"context"

	"github.com/google/uuid"

	"metacatalog/internal/domain"
	"metacatalog/internal/repository"
)

// userHooks manages team membership (team HAS user) and exposes what a user
// owns and follows
type userHooks struct {
	noHooks[*domain.User]
	c *Catalog
}

func (h *userHooks) prepare(ctx context.Context, tx repository.Tx, user *domain.User) error {
	user.FullyQualifiedName = user.Name
	teams, err := h.c.resolveAll(ctx, tx, domain.EntityTeam, user.Teams)
	if err != nil {
		return err
	}
	user.Teams = teams
	return nil
}

func (h *userHooks) setFields(ctx context.Context, tx repository.Tx, user *domain.User, fields domain.Fields) error {
	user.Teams, user.Owns, user.Follows = nil, nil, nil
	var err error
	if fields.Contains(domain.FieldTeams) {
		if user.Teams, err = h.c.related(ctx, tx, user.ID, domain.RelationHas, domain.EntityTeam, true); err != nil {
			return err
		}
	}
	if fields.Contains(domain.FieldOwns) {
		if user.Owns, err = h.c.related(ctx, tx, user.ID, domain.RelationOwns, "", false); err != nil {
			return err
		}
	}
	if fields.Contains(domain.FieldFollows) {
		if user.Follows, err = h.c.related(ctx, tx, user.ID, domain.RelationFollows, "", false); err != nil {
			return err
		}
	}
	return nil
}

func (h *userHooks) strip(user *domain.User) func() {
	teams, owns, follows := user.Teams, user.Owns, user.Follows
	user.Teams, user.Owns, user.Follows = nil, nil, nil
	return func() { user.Teams, user.Owns, user.Follows = teams, owns, follows }
}

func (h *userHooks) storeRelationships(ctx context.Context, tx repository.Tx, user *domain.User) error {
	ref := user.Reference(domain.EntityUser)
	for i := range user.Teams {
		if err := tx.Relationships().Insert(ctx, domain.NewEdge(&user.Teams[i], ref, domain.RelationHas)); err != nil {
			return err
		}
	}
	return nil
}

func (h *userHooks) restorePatchAttributes(orig, patched *domain.User) {
	patched.Owns = orig.Owns
	patched.Follows = orig.Follows
}

func (h *userHooks) mergeForPut(stored, incoming *domain.User) {
	incoming.Owns = stored.Owns
	incoming.Follows = stored.Follows
	if incoming.Teams == nil {
		incoming.Teams = stored.Teams
	}
}

func (h *userHooks) updateSpecific(ctx context.Context, tx repository.Tx, u *updater, orig, upd *domain.User) error {
	u.recordChange("email", orig.Email, upd.Email)
	u.recordChange("isAdmin", orig.IsAdmin, upd.IsAdmin)
	u.recordChange("isBot", orig.IsBot, upd.IsBot)

	added, deleted := recordListChange(u, domain.FieldTeams, orig.Teams, upd.Teams, referenceMatch)
	if len(added)+len(deleted) == 0 {
		return nil
	}
	// membership is replaced as a whole
	if err := tx.Relationships().DeleteTo(ctx, upd.ID, domain.RelationHas, domain.EntityTeam); err != nil {
		return err
	}
	return h.storeRelationships(ctx, tx, upd)
}

// onDelete revokes the user's API tokens
func (h *userHooks) onDelete(ctx context.Context, tx repository.Tx, user *domain.User) error {
	return tx.Tokens().DeleteByUser(ctx, user.ID)
}

// teamHooks manages the users a team has
type teamHooks struct {
	noHooks[*domain.Team]
	c *Catalog
}

func (h *teamHooks) prepare(ctx context.Context, tx repository.Tx, team *domain.Team) error {
	team.FullyQualifiedName = team.Name
	users, err := h.c.resolveAll(ctx, tx, domain.EntityUser, team.Users)
	if err != nil {
		return err
	}
	team.Users = users
	return nil
}

func (h *teamHooks) setFields(ctx context.Context, tx repository.Tx, team *domain.Team, fields domain.Fields) error {
	team.Users, team.Owns = nil, nil
	var err error
	if fields.Contains(domain.FieldUsers) {
		if team.Users, err = h.c.related(ctx, tx, team.ID, domain.RelationHas, domain.EntityUser, false); err != nil {
			return err
		}
	}
	if fields.Contains(domain.FieldOwns) {
		if team.Owns, err = h.c.related(ctx, tx, team.ID, domain.RelationOwns, "", false); err != nil {
			return err
		}
	}
	return nil
}

func (h *teamHooks) strip(team *domain.Team) func() {
	users, owns := team.Users, team.Owns
	team.Users, team.Owns = nil, nil
	return func() { team.Users, team.Owns = users, owns }
}

func (h *teamHooks) storeRelationships(ctx context.Context, tx repository.Tx, team *domain.Team) error {
	ref := team.Reference(domain.EntityTeam)
	for i := range team.Users {
		if err := tx.Relationships().Insert(ctx, domain.NewEdge(ref, &team.Users[i], domain.RelationHas)); err != nil {
			return err
		}
	}
	return nil
}

func (h *teamHooks) restorePatchAttributes(orig, patched *domain.Team) {
	patched.Owns = orig.Owns
}

func (h *teamHooks) mergeForPut(stored, incoming *domain.Team) {
	incoming.Owns = stored.Owns
	if incoming.Users == nil {
		incoming.Users = stored.Users
	}
}

func (h *teamHooks) updateSpecific(ctx context.Context, tx repository.Tx, u *updater, orig, upd *domain.Team) error {
	added, deleted := recordListChange(u, domain.FieldUsers, orig.Users, upd.Users, referenceMatch)
	if len(added)+len(deleted) == 0 {
		return nil
	}
	if err := tx.Relationships().DeleteFrom(ctx, upd.ID, domain.RelationHas, domain.EntityUser); err != nil {
		return err
	}
	return h.storeRelationships(ctx, tx, upd)
}

// resolveAll replaces caller supplied references with stored ones
func (c *Catalog) resolveAll(ctx context.Context, tx repository.Tx, entityType string, refs []domain.EntityReference) ([]domain.EntityReference, error) {
	if refs == nil {
		return nil, nil
	}
	resolved := make([]domain.EntityReference, 0, len(refs))
	for _, ref := range refs {
		r, err := c.entityReference(ctx, tx, entityType, ref.ID)
		if err != nil {
			return nil, err
		}
		if !containsMatch(resolved, *r, referenceMatch) {
			resolved = append(resolved, *r)
		}
	}
	return resolved, nil
}

// related returns the entities on the other end of id's edges. incoming
// selects edges pointing at id; otherwise edges leaving id are followed.
func (c *Catalog) related(ctx context.Context, tx repository.Tx, id uuid.UUID, relation domain.Relationship, otherType string, incoming bool) ([]domain.EntityReference, error) {
	var (
		edges []domain.Edge
		err   error
	)
	if incoming {
		edges, err = tx.Relationships().FindFrom(ctx, id, relation, otherType)
	} else {
		edges, err = tx.Relationships().FindTo(ctx, id, relation, otherType)
	}
	if err != nil {
		return nil, err
	}
	return c.edgeReferences(ctx, tx, edges, incoming)
}
