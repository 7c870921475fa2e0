package tokens

import "slices"

// Identity is the caller described by a verified token. It is only ever
// built from a token whose signature checked out.
type Identity struct {
	Username string
	Subject  string
	Groups   []string
	Claims   *Claims
}

func newIdentity(claims *Claims) *Identity {
	groups := make([]string, 0, len(claims.Groups))
	groups = append(groups, claims.Groups...)
	return &Identity{
		Username: claims.username(),
		Subject:  claims.Subject,
		Groups:   groups,
		Claims:   claims,
	}
}

// HasGroup reports whether the identity belongs to group. A token
// without a groups claim belongs to no group.
func (i *Identity) HasGroup(group string) bool {
	if i == nil || group == "" {
		return false
	}
	return slices.Contains(i.Groups, group)
}
