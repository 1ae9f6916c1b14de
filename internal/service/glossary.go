package service

import (
	"context"

	"metacatalog/internal/domain"
	"metacatalog/internal/repository"
)

// glossaryHooks: a glossary is a top level container, FQN is its name
type glossaryHooks struct {
	noHooks[*domain.Glossary]
}

// glossaryTermHooks places terms under their glossary
type glossaryTermHooks struct {
	noHooks[*domain.GlossaryTerm]
	c *Catalog
}

func (h *glossaryTermHooks) prepare(ctx context.Context, tx repository.Tx, term *domain.GlossaryTerm) error {
	glossary, err := h.c.resolveReference(ctx, tx, "glossary", term.Glossary, domain.EntityGlossary)
	if err != nil {
		return err
	}
	term.Glossary = glossary
	term.FullyQualifiedName = domain.BuildFQN(glossary.Name, term.Name)
	return nil
}

func (h *glossaryTermHooks) setFields(ctx context.Context, tx repository.Tx, term *domain.GlossaryTerm, _ domain.Fields) error {
	glossary, err := h.c.containerOf(ctx, tx, term.ID, domain.EntityGlossary)
	if err != nil {
		return err
	}
	term.Glossary = glossary
	return nil
}

func (h *glossaryTermHooks) strip(term *domain.GlossaryTerm) func() {
	glossary := term.Glossary
	term.Glossary = nil
	return func() { term.Glossary = glossary }
}

func (h *glossaryTermHooks) storeRelationships(ctx context.Context, tx repository.Tx, term *domain.GlossaryTerm) error {
	return containedIn(ctx, tx, term.Glossary, term.Reference(domain.EntityGlossaryTerm))
}

func (h *glossaryTermHooks) restorePatchAttributes(orig, patched *domain.GlossaryTerm) {
	patched.Glossary = orig.Glossary
}

func (h *glossaryTermHooks) updateSpecific(_ context.Context, _ repository.Tx, u *updater, orig, upd *domain.GlossaryTerm) error {
	recordListChange(u, "synonyms", orig.Synonyms, upd.Synonyms, func(a, b string) bool { return a == b })
	return nil
}
