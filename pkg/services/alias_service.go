package services

import (
	"context"
	"fmt"

	"github.com/feedforward/feedforward/ent"
	"github.com/feedforward/feedforward/ent/signaturealias"
	"github.com/google/uuid"
)

// AliasService manages the PM-approved component/product-area alias
// registry. Shared across runs; conflicting updates resolve last-writer-wins
// via the version column rather than failing the run (see DESIGN.md).
type AliasService struct {
	client *ent.Client
}

// NewAliasService creates a new AliasService.
func NewAliasService(client *ent.Client) *AliasService {
	return &AliasService{client: client}
}

// Lookup resolves a normalized raw value to its canonical form, if an alias
// exists for it.
func (s *AliasService) Lookup(ctx context.Context, kind signaturealias.Kind, normalizedRaw string) (*ent.SignatureAlias, error) {
	alias, err := s.client.SignatureAlias.Query().
		Where(
			signaturealias.KindEQ(kind),
			signaturealias.NormalizedRawEQ(normalizedRaw),
		).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up alias: %w", err)
	}
	return alias, nil
}

// LoadAll returns the full alias registry for one kind, for bulk in-memory
// lookup during a run (the registry is small and read far more than it is
// written).
func (s *AliasService) LoadAll(ctx context.Context, kind signaturealias.Kind) (map[string]string, error) {
	aliases, err := s.client.SignatureAlias.Query().
		Where(signaturealias.KindEQ(kind)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load alias registry: %w", err)
	}
	out := make(map[string]string, len(aliases))
	for _, a := range aliases {
		out[a.NormalizedRaw] = a.Canonical
	}
	return out, nil
}

// Upsert creates a new alias, or overwrites an existing one's canonical
// value with a bumped version (last-writer-wins). Returns the alias and
// whether a prior mapping was overwritten.
func (s *AliasService) Upsert(ctx context.Context, kind signaturealias.Kind, normalizedRaw, canonical string) (*ent.SignatureAlias, bool, error) {
	existing, err := s.Lookup(ctx, kind, normalizedRaw)
	if err != nil && err != ErrNotFound {
		return nil, false, err
	}

	if err == ErrNotFound {
		created, createErr := s.client.SignatureAlias.Create().
			SetID(uuid.New().String()).
			SetKind(kind).
			SetNormalizedRaw(normalizedRaw).
			SetCanonical(canonical).
			Save(ctx)
		if createErr != nil {
			if ent.IsConstraintError(createErr) {
				// Lost a create race; fall through to the overwrite path.
				existing, err = s.Lookup(ctx, kind, normalizedRaw)
				if err != nil {
					return nil, false, err
				}
			} else {
				return nil, false, fmt.Errorf("failed to create alias: %w", createErr)
			}
		} else {
			return created, false, nil
		}
	}

	if existing.Canonical == canonical {
		return existing, false, nil
	}

	updated, err := s.client.SignatureAlias.UpdateOneID(existing.ID).
		SetCanonical(canonical).
		AddVersion(1).
		Save(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to overwrite alias: %w", err)
	}
	return updated, true, nil
}
