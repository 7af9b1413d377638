package storage

import (
	"github.com/imparable/imparable/internal/model"
)

// NoticeRepo is the ledger of reminder emails already sent.
type NoticeRepo struct {
	db *DB
}

// NewNoticeRepo creates a new notice repository.
func NewNoticeRepo(db *DB) *NoticeRepo {
	return &NoticeRepo{db: db}
}

// Mark records n and reports whether it was not recorded before.
func (r *NoticeRepo) Mark(n *model.Notice) (bool, error) {
	n.Key = model.GenerateNoticeKey(n.ObjectiveID, n.Category, n.Date)
	return r.db.SetIfAbsent(n)
}

// Unmark removes n from the ledger.
func (r *NoticeRepo) Unmark(n *model.Notice) error {
	return r.db.Delete(model.GenerateNoticeKey(n.ObjectiveID, n.Category, n.Date))
}

// ListForObjective returns every notice sent for an objective.
func (r *NoticeRepo) ListForObjective(objectiveID string) ([]*model.Notice, error) {
	return GetAllByPrefix(r.db, model.PrefixNotice+":"+objectiveID+":", func() *model.Notice {
		return &model.Notice{}
	})
}
