package memory

import (
	"github.com/aletheia-lab/mnemosyne/pkg/domain/interfaces"
)

// Memory is an in-process repository for development and tests. All data is
// lost on exit. Every sub-repository deep-copies on the way in and out so
// callers never share state with the store.
type Memory struct {
	entity       *entityRepository
	alias        *aliasRepository
	relationship *relationshipRepository
}

var _ interfaces.Repository = &Memory{}

// New creates an empty in-memory repository
func New() *Memory {
	return &Memory{
		entity:       newEntityRepository(),
		alias:        newAliasRepository(),
		relationship: newRelationshipRepository(),
	}
}

func (m *Memory) Entity() interfaces.EntityRepository {
	return m.entity
}

func (m *Memory) Alias() interfaces.AliasRepository {
	return m.alias
}

func (m *Memory) Relationship() interfaces.RelationshipRepository {
	return m.relationship
}

func (m *Memory) Close() error {
	return nil
}
