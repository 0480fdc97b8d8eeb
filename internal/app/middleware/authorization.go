package middleware

import (
	"context"
	"fmt"
	"strings"

	"acropolis/internal/app/commands"
	"acropolis/internal/domain/shared/domainerr"
)

// ErrActorRequired is returned for administrative commands sent without an
// identified staff member.
var ErrActorRequired = fmt.Errorf("an acting staff member is required: %w", domainerr.ErrForbidden)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// AdminCommand marks commands that are audited with the acting staff member.
type AdminCommand interface {
	commands.Command
	RequiresActor() bool
}

type actorKey struct{}

func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, strings.TrimSpace(actor))
}

func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return ""
}

// ActorAuthorizer lets admin commands through only when an actor is present.
type ActorAuthorizer struct{}

func (ActorAuthorizer) Authorize(ctx context.Context, message any) error {
	admin, ok := message.(AdminCommand)
	if !ok || !admin.RequiresActor() {
		return nil
	}
	if ActorFromContext(ctx) == "" {
		return ErrActorRequired
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

var _ Authorizer = ActorAuthorizer{}
