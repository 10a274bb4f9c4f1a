package flow

import (
	"context"
	"fqlrun/internal/scope"
)

// RoleChoice is one entry offered when picking a role to run a query as.
type RoleChoice struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Builtin     bool   `json:"builtin"`
}

var builtinRoleChoices = []RoleChoice{
	{Name: scope.RoleAdmin, Description: "A builtin role with all permissions", Builtin: true},
	{Name: scope.RoleServer, Description: "A builtin role with permission to edit collections and functions, but not roles.", Builtin: true},
}

// Roles lists the builtin roles followed by the user-defined roles visible to
// the current secret. User roles are cached per client for the roles TTL.
func (o *Orchestrator) Roles(ctx context.Context) ([]RoleChoice, error) {
	cli := o.Client()
	key := cli.Endpoint().String() + "|" + cli.Secret()

	page, ok := o.roles.Get(key)
	if !ok {
		var err error
		page, err = cli.ListRoles(ctx)
		if err != nil {
			return nil, err
		}
		o.roles.Set(key, page, o.rolesTTL)
	}
	if page.Truncated {
		o.warn(TooManyRolesMessage)
	}

	out := make([]RoleChoice, 0, len(builtinRoleChoices)+len(page.Names))
	out = append(out, builtinRoleChoices...)
	for _, name := range page.Names {
		out = append(out, RoleChoice{Name: name})
	}
	return out, nil
}
