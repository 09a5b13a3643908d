package types

import "github.com/m-mizutani/goerr/v2"

// Shared repository sentinels. Every backend maps its native signal onto
// these so that callers can match with errors.Is regardless of the storage
// implementation.
var (
	// ErrEntityNotFound is returned when no entity matches the lookup key
	ErrEntityNotFound = goerr.New("entity not found")

	// ErrEntityExists is returned by Create when the (user, name) key is
	// already taken. Callers recover by re-reading the existing row.
	ErrEntityExists = goerr.New("entity already exists")

	// ErrAliasNotFound is returned when an entity has no alias membership
	ErrAliasNotFound = goerr.New("alias membership not found")

	// ErrAliasExists is returned when an entity already belongs to a group
	ErrAliasExists = goerr.New("alias membership already exists")

	// ErrAliasGroupNotFound is returned when no alias group matches the ID
	ErrAliasGroupNotFound = goerr.New("alias group not found")

	// ErrRelationshipNotFound is returned when no edge matches the lookup key
	ErrRelationshipNotFound = goerr.New("relationship not found")

	// ErrRelationshipExists is returned by Create when the
	// (user, source, label, target) key is already taken
	ErrRelationshipExists = goerr.New("relationship already exists")
)
