package storage

import (
	"fmt"

	ierrors "github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/model"
)

// ObjectiveRepo provides operations for Objective entities.
type ObjectiveRepo struct {
	db *DB
}

// NewObjectiveRepo creates a new objective repository.
func NewObjectiveRepo(db *DB) *ObjectiveRepo {
	return &ObjectiveRepo{db: db}
}

// Save creates or replaces an objective.
func (r *ObjectiveRepo) Save(o *model.Objective) error {
	o.Key = model.GenerateObjectiveKey(o.ID)
	o.Normalize()
	return r.db.Set(o)
}

// Get retrieves an objective by id.
func (r *ObjectiveRepo) Get(id string) (*model.Objective, error) {
	o := &model.Objective{}
	if err := r.db.Get(model.GenerateObjectiveKey(id), o); err != nil {
		if IsErrKeyNotFound(err) {
			return nil, fmt.Errorf("objective %s: %w", id, ierrors.ErrObjectiveNotFound)
		}
		return nil, err
	}
	o.Normalize()
	return o, nil
}

// Delete removes an objective by id.
func (r *ObjectiveRepo) Delete(id string) error {
	key := model.GenerateObjectiveKey(id)
	exists, err := r.db.Exists(key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("objective %s: %w", id, ierrors.ErrObjectiveNotFound)
	}
	return r.db.Delete(key)
}

// List retrieves all objectives.
func (r *ObjectiveRepo) List() ([]*model.Objective, error) {
	objectives, err := GetAllByPrefix(r.db, model.PrefixObjective+":", func() *model.Objective {
		return &model.Objective{}
	})
	if err != nil {
		return nil, err
	}
	for _, o := range objectives {
		o.Normalize()
	}
	return objectives, nil
}

// ListByOwner retrieves the objectives owned by a user.
func (r *ObjectiveRepo) ListByOwner(ownerID string) ([]*model.Objective, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	var owned []*model.Objective
	for _, o := range all {
		if o.OwnerID == ownerID {
			owned = append(owned, o)
		}
	}
	return owned, nil
}
