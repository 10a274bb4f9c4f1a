package client

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

const (
	RolesQuery    = "(Role.all() { name }).paginate(1000)"
	RolesPageSize = 1000
)

// RolePage is the result of listing user-defined roles.
// Truncated is set when the server reported a further page.
type RolePage struct {
	Names     []string
	Truncated bool
}

// ListRoles returns the names of user-defined roles visible to the client's
// secret.
func (c *Client) ListRoles(ctx context.Context) (RolePage, error) {
	res, err := c.Query(ctx, RolesQuery, QueryOptions{})
	if err != nil {
		return RolePage{}, err
	}
	var page any
	if err := json.Unmarshal(res.Data, &page); err != nil {
		return RolePage{}, fmt.Errorf("decode roles: %w", err)
	}
	names, err := evalStrings(roleNames, page)
	if err != nil {
		return RolePage{}, err
	}
	after, err := evalAny(roleAfter, page)
	if err != nil {
		return RolePage{}, err
	}
	return RolePage{Names: names, Truncated: after != nil}, nil
}
