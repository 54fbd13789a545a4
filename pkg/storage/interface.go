package storage

import (
	"context"

	"github.com/santoshpalla27/user-app-redis-mysql/pkg/models"
)

// UserStore is the CRUD contract both backends satisfy. Ids are opaque strings
// at this level: the relational store uses decimal auto-increment ids, the
// cluster store uses generated uuid tokens. The two id spaces are not
// comparable.
type UserStore interface {
	List(ctx context.Context) ([]models.UserRecord, error)
	Get(ctx context.Context, id string) (*models.UserRecord, error)
	Insert(ctx context.Context, rec *models.UserRecord) error
	Update(ctx context.Context, id string, rec *models.UserRecord) error
	Delete(ctx context.Context, id string) error
}
