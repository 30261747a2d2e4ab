package repository

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OwnerScope filters a query to rows belonging to ownerID. A nil owner matches
// nothing, so a missing owner can never widen a query to every row.
func OwnerScope(ownerID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if ownerID == uuid.Nil {
			return db.Where("1 = 0")
		}
		return db.Where("owner_id = ?", ownerID)
	}
}

// translate maps gorm's sentinel errors onto the domain ones. ErrRecordNotFound
// is handled at each call site since lookups return nil, nil.
func translate(err error, duplicate error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.WithSecondaryError(errors.WithStack(duplicate), err)
	}
	return err
}
