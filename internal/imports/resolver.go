package imports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

type directory interface {
	FindIDByName(ctx context.Context, name string) (uuid.UUID, error)
	CreateNamed(ctx context.Context, name string) (uuid.UUID, error)
}

// resolver maps names to ids for the lifetime of one batch. Entries are
// written through as soon as an entity is found or created, so two rows
// naming the same new entity always share one id. Keys use the same
// lower/trim rule as the stores' name lookup.
type resolver struct {
	dirs map[string]directory
	ids  map[string]map[string]uuid.UUID
}

func newResolver(clients ClientDirectory, companies CompanyDirectory) *resolver {
	return &resolver{
		dirs: map[string]directory{"client": clients, "company": companies},
		ids: map[string]map[string]uuid.UUID{
			"client":  {},
			"company": {},
		},
	}
}

func (r *resolver) resolve(ctx context.Context, entity, name string) (uuid.UUID, error) {
	dir, ok := r.dirs[entity]
	if !ok || dir == nil {
		return uuid.Nil, &EntityResolutionError{Entity: entity, Name: name, Err: fmt.Errorf("no directory for %s", entity)}
	}
	key := nameKey(name)
	if id, ok := r.ids[entity][key]; ok {
		return id, nil
	}

	id, err := dir.FindIDByName(ctx, name)
	if errors.Is(err, shared.ErrNotFound) {
		id, err = dir.CreateNamed(ctx, name)
	}
	if err != nil {
		return uuid.Nil, &EntityResolutionError{Entity: entity, Name: name, Err: err}
	}
	r.ids[entity][key] = id
	return id, nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
