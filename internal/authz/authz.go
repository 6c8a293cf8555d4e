// Package authz resolves a user's effective role on a resource and checks it
// against the role an operation requires.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/AbhinayAmbati/kanbana/internal/domain"
)

// Resource is anything with an owner and a member list.
type Resource interface {
	RoleOf(userID uuid.UUID) (domain.Role, bool)
}

// Resolver loads the resource a gate protects.
type Resolver interface {
	Resolve(ctx context.Context, id uuid.UUID) (Resource, error)
}

// ResolverFunc adapts a plain function to Resolver.
type ResolverFunc func(ctx context.Context, id uuid.UUID) (Resource, error)

func (f ResolverFunc) Resolve(ctx context.Context, id uuid.UUID) (Resource, error) {
	return f(ctx, id)
}

// Evaluate applies the resolution order to an already loaded resource:
// a nil resource is not found, the owner is admin, a member has its stored
// role, anyone else is forbidden.
func Evaluate(res Resource, actor uuid.UUID, required domain.Role) (domain.Role, error) {
	if res == nil {
		return "", domain.ErrNotFound
	}
	role, ok := res.RoleOf(actor)
	if !ok {
		return "", fmt.Errorf("%w: not a member", domain.ErrForbidden)
	}
	if !role.Satisfies(required) {
		return role, fmt.Errorf("%w: requires %s, have %s", domain.ErrForbidden, required, role)
	}
	return role, nil
}

// Gate authorizes actors against one kind of resource.
type Gate struct {
	resolver Resolver
}

func NewGate(r Resolver) *Gate {
	return &Gate{resolver: r}
}

// Authorize returns the actor's effective role on resource id, or
// ErrNotFound / ErrForbidden.
func (g *Gate) Authorize(ctx context.Context, actor, id uuid.UUID, required domain.Role) (domain.Role, error) {
	res, err := g.resolver.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("authz.Gate.Authorize: %w", err)
	}
	return Evaluate(res, actor, required)
}

// BoardResolver resolves boards by id.
func BoardResolver(repo domain.BoardRepository) Resolver {
	return ResolverFunc(func(ctx context.Context, id uuid.UUID) (Resource, error) {
		b, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return b, nil
	})
}

// WorkspaceResolver resolves workspaces by id.
func WorkspaceResolver(repo domain.WorkspaceRepository) Resolver {
	return ResolverFunc(func(ctx context.Context, id uuid.UUID) (Resource, error) {
		w, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return w, nil
	})
}
