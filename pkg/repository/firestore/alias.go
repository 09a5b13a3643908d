package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
)

type aliasGroupDoc struct {
	ID                string    `firestore:"ID"`
	UserID            string    `firestore:"UserID"`
	CanonicalEntityID string    `firestore:"CanonicalEntityID"`
	CreatedAt         time.Time `firestore:"CreatedAt"`
}

// aliasMemberDoc uses the entity ID as its document ID, so an entity can
// hold at most one membership at a time.
type aliasMemberDoc struct {
	UserID    string    `firestore:"UserID"`
	EntityID  string    `firestore:"EntityID"`
	GroupID   string    `firestore:"GroupID"`
	CreatedAt time.Time `firestore:"CreatedAt"`
}

func toAliasGroupDoc(g *model.AliasGroup) *aliasGroupDoc {
	return &aliasGroupDoc{
		ID:                string(g.ID),
		UserID:            string(g.UserID),
		CanonicalEntityID: string(g.CanonicalEntityID),
		CreatedAt:         g.CreatedAt,
	}
}

func fromAliasGroupDoc(d *aliasGroupDoc) *model.AliasGroup {
	return &model.AliasGroup{
		ID:                types.AliasGroupID(d.ID),
		UserID:            types.UserID(d.UserID),
		CanonicalEntityID: types.EntityID(d.CanonicalEntityID),
		CreatedAt:         d.CreatedAt,
	}
}

func fromAliasMemberDoc(d *aliasMemberDoc) *model.EntityAlias {
	return &model.EntityAlias{
		UserID:    types.UserID(d.UserID),
		EntityID:  types.EntityID(d.EntityID),
		GroupID:   types.AliasGroupID(d.GroupID),
		CreatedAt: d.CreatedAt,
	}
}

type aliasRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newAliasRepository(client *firestore.Client) *aliasRepository {
	return &aliasRepository{
		client: client,
	}
}

func (r *aliasRepository) usersCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_users"
	}
	return "users"
}

func (r *aliasRepository) groupsCollection(userID types.UserID) *firestore.CollectionRef {
	return r.client.Collection(r.usersCollection()).Doc(string(userID)).Collection("aliasGroups")
}

func (r *aliasRepository) membersCollection(userID types.UserID) *firestore.CollectionRef {
	return r.client.Collection(r.usersCollection()).Doc(string(userID)).Collection("aliasMembers")
}

func (r *aliasRepository) GetMembership(ctx context.Context, userID types.UserID, entityID types.EntityID) (*model.EntityAlias, error) {
	doc, err := r.membersCollection(userID).Doc(string(entityID)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(types.ErrAliasNotFound, "entity has no alias membership",
				goerr.V("userID", userID),
				goerr.V("entityID", entityID))
		}
		return nil, goerr.Wrap(err, "failed to get alias membership", goerr.V("entityID", entityID))
	}

	var d aliasMemberDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal alias membership", goerr.V("entityID", entityID))
	}

	return fromAliasMemberDoc(&d), nil
}

func (r *aliasRepository) GetGroup(ctx context.Context, userID types.UserID, groupID types.AliasGroupID) (*model.AliasGroup, error) {
	doc, err := r.groupsCollection(userID).Doc(string(groupID)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(types.ErrAliasGroupNotFound, "alias group not found",
				goerr.V("userID", userID),
				goerr.V("groupID", groupID))
		}
		return nil, goerr.Wrap(err, "failed to get alias group", goerr.V("groupID", groupID))
	}

	var d aliasGroupDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal alias group", goerr.V("groupID", groupID))
	}

	return fromAliasGroupDoc(&d), nil
}

func (r *aliasRepository) CreateGroup(ctx context.Context, group *model.AliasGroup) (*model.AliasGroup, error) {
	if group.UserID == "" {
		return nil, goerr.New("user ID is required")
	}

	if group.ID == "" {
		group.ID = types.NewAliasGroupID()
	}
	group.CreatedAt = time.Now().UTC()

	docRef := r.groupsCollection(group.UserID).Doc(string(group.ID))
	if _, err := docRef.Create(ctx, toAliasGroupDoc(group)); err != nil {
		return nil, goerr.Wrap(err, "failed to create alias group", goerr.V("groupID", group.ID))
	}

	return group, nil
}

func (r *aliasRepository) AddMember(ctx context.Context, userID types.UserID, groupID types.AliasGroupID, entityID types.EntityID) error {
	if _, err := r.GetGroup(ctx, userID, groupID); err != nil {
		return err
	}

	member := &aliasMemberDoc{
		UserID:    string(userID),
		EntityID:  string(entityID),
		GroupID:   string(groupID),
		CreatedAt: time.Now().UTC(),
	}

	docRef := r.membersCollection(userID).Doc(string(entityID))
	if _, err := docRef.Create(ctx, member); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return goerr.Wrap(types.ErrAliasExists, "entity is already in an alias group",
				goerr.V("userID", userID),
				goerr.V("entityID", entityID))
		}
		return goerr.Wrap(err, "failed to add alias member", goerr.V("entityID", entityID))
	}

	return nil
}

func (r *aliasRepository) ListMembers(ctx context.Context, userID types.UserID, groupID types.AliasGroupID) ([]*model.EntityAlias, error) {
	iter := r.membersCollection(userID).
		Where("GroupID", "==", string(groupID)).
		Documents(ctx)
	defer iter.Stop()

	members := make([]*model.EntityAlias, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate alias members", goerr.V("groupID", groupID))
		}

		var d aliasMemberDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal alias member")
		}

		members = append(members, fromAliasMemberDoc(&d))
	}

	return members, nil
}

func (r *aliasRepository) MoveMembers(ctx context.Context, userID types.UserID, fromGroupID, toGroupID types.AliasGroupID) (int, error) {
	iter := r.membersCollection(userID).
		Where("GroupID", "==", string(fromGroupID)).
		Documents(ctx)
	defer iter.Stop()

	moved := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return moved, goerr.Wrap(err, "failed to iterate alias members", goerr.V("fromGroupID", fromGroupID))
		}

		updates := []firestore.Update{
			{Path: "GroupID", Value: string(toGroupID)},
		}
		if _, err := doc.Ref.Update(ctx, updates); err != nil {
			return moved, goerr.Wrap(err, "failed to move alias member",
				goerr.V("fromGroupID", fromGroupID),
				goerr.V("toGroupID", toGroupID))
		}
		moved++
	}

	return moved, nil
}

func (r *aliasRepository) DeleteGroup(ctx context.Context, userID types.UserID, groupID types.AliasGroupID) error {
	docRef := r.groupsCollection(userID).Doc(string(groupID))

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(types.ErrAliasGroupNotFound, "alias group not found",
				goerr.V("userID", userID),
				goerr.V("groupID", groupID))
		}
		return goerr.Wrap(err, "failed to get alias group", goerr.V("groupID", groupID))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete alias group", goerr.V("groupID", groupID))
	}

	return nil
}

func (r *aliasRepository) CountGroupsByUser(ctx context.Context, userID types.UserID) (int, error) {
	docs, err := r.groupsCollection(userID).Documents(ctx).GetAll()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count alias groups", goerr.V("userID", userID))
	}
	return len(docs), nil
}
