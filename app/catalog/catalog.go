package catalog

import (
	"context"

	"github.com/fapac/materiais-bff/models"
)

// Backend is the subset of Client used by Catalog.
type Backend interface {
	List(ctx context.Context) ([]models.Material, error)
	Create(ctx context.Context, input models.MaterialInput) (*models.Material, error)
	Delete(ctx context.Context, id string) error
}

// Catalog keeps State in sync with the server. Writes wait for the server's
// confirmation and are followed by a full reload; the local list is never
// patched in place.
type Catalog struct {
	backend Backend
	state   *State
}

func New(backend Backend, state *State) *Catalog {
	if state == nil {
		state = NewState()
	}
	return &Catalog{
		backend: backend,
		state:   state,
	}
}

func (c *Catalog) State() *State {
	return c.state
}

// Load replaces the state's list with a fresh copy from the server.
// On failure the previous list is kept.
func (c *Catalog) Load(ctx context.Context) error {
	materials, err := c.backend.List(ctx)
	if err != nil {
		return err
	}
	c.state.SetMaterials(materials)
	return nil
}

func (c *Catalog) Add(ctx context.Context, input models.MaterialInput) (*models.Material, error) {
	created, err := c.backend.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	return created, c.Load(ctx)
}

func (c *Catalog) Remove(ctx context.Context, id string) error {
	if err := c.backend.Delete(ctx, id); err != nil {
		return err
	}
	return c.Load(ctx)
}
