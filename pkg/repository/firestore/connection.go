package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/wearsync/pkg/domain/interfaces"
	"github.com/secmon-lab/wearsync/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const connectionsCollection = "fitbit_connections"

type connectionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.ConnectionRepository = &connectionRepository{}

func newConnectionRepository(client *firestore.Client) *connectionRepository {
	return &connectionRepository{
		client: client,
	}
}

// connectionDoc is the Firestore persistence model
type connectionDoc struct {
	UserID         string     `firestore:"user_id"`
	ProviderUserID string     `firestore:"provider_user_id"`
	AccessToken    string     `firestore:"access_token"`
	RefreshToken   string     `firestore:"refresh_token"`
	Scope          string     `firestore:"scope"`
	TokenType      string     `firestore:"token_type"`
	ExpiresAt      time.Time  `firestore:"expires_at"`
	LastSyncedAt   *time.Time `firestore:"last_synced_at"`
	CreatedAt      time.Time  `firestore:"created_at"`
	UpdatedAt      time.Time  `firestore:"updated_at"`
}

func (r *connectionRepository) collection() *firestore.CollectionRef {
	if r.collectionPrefix != "" {
		return r.client.Collection(r.collectionPrefix + "_" + connectionsCollection)
	}
	return r.client.Collection(connectionsCollection)
}

func toConnectionDoc(c *model.Connection) *connectionDoc {
	return &connectionDoc{
		UserID:         c.UserID,
		ProviderUserID: c.ProviderUserID,
		AccessToken:    c.AccessToken,
		RefreshToken:   c.RefreshToken,
		Scope:          c.Scope,
		TokenType:      c.TokenType,
		ExpiresAt:      c.ExpiresAt,
		LastSyncedAt:   c.LastSyncedAt,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func fromConnectionDoc(doc *connectionDoc) *model.Connection {
	return &model.Connection{
		UserID:         doc.UserID,
		ProviderUserID: doc.ProviderUserID,
		AccessToken:    doc.AccessToken,
		RefreshToken:   doc.RefreshToken,
		Scope:          doc.Scope,
		TokenType:      doc.TokenType,
		ExpiresAt:      doc.ExpiresAt,
		LastSyncedAt:   doc.LastSyncedAt,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

func (r *connectionRepository) Get(ctx context.Context, userID string) (*model.Connection, error) {
	doc, err := r.collection().Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "connection not found", goerr.V("user_id", userID))
		}
		return nil, goerr.Wrap(err, "failed to get connection", goerr.V("user_id", userID))
	}

	var d connectionDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal connection", goerr.V("user_id", userID))
	}

	return fromConnectionDoc(&d), nil
}

// List returns all connections ordered by user ID
func (r *connectionRepository) List(ctx context.Context) ([]*model.Connection, error) {
	iter := r.collection().OrderBy("user_id", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var conns []*model.Connection
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate connections")
		}

		var d connectionDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal connection", goerr.V("docID", doc.Ref.ID))
		}
		conns = append(conns, fromConnectionDoc(&d))
	}

	return conns, nil
}

// Put upserts the connection in a transaction so created_at survives updates
func (r *connectionRepository) Put(ctx context.Context, conn *model.Connection) error {
	if err := conn.Validate(); err != nil {
		return goerr.Wrap(err, "invalid connection")
	}

	ref := r.collection().Doc(conn.UserID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		d := toConnectionDoc(conn)
		now := time.Now().UTC()

		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			var existing connectionDoc
			if err := snap.DataTo(&existing); err != nil {
				return goerr.Wrap(err, "failed to unmarshal existing connection")
			}
			d.CreatedAt = existing.CreatedAt
		case status.Code(err) == codes.NotFound:
			if d.CreatedAt.IsZero() {
				d.CreatedAt = now
			}
		default:
			return goerr.Wrap(err, "failed to read connection")
		}
		d.UpdatedAt = now

		return tx.Set(ref, d)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to put connection to firestore", goerr.V("user_id", conn.UserID))
	}

	return nil
}
