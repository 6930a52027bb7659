package postgres

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/model"
)

const recordColumns = `id, user_id, member_id, title, category, tags, doctor,
	description, date, file_url, created_at, updated_at`

// recordQuery builds WHERE clauses against one record table. Queries made
// with ownedBy always carry user_id as their first predicate.
type recordQuery struct {
	table string
	conds []string
	args  []interface{}
}

func ownedBy(table string, userID uuid.UUID) *recordQuery {
	return (&recordQuery{table: table}).where("user_id = %s", userID)
}

// anyOwner starts an unscoped query. Reserved for share-link lookups.
func anyOwner(table string) *recordQuery {
	return &recordQuery{table: table}
}

// where appends a predicate; format holds one %s for the placeholder.
func (q *recordQuery) where(format string, arg interface{}) *recordQuery {
	q.args = append(q.args, arg)
	q.conds = append(q.conds, fmt.Sprintf(format, fmt.Sprintf("$%d", len(q.args))))
	return q
}

func (q *recordQuery) withID(id uuid.UUID) *recordQuery {
	return q.where("id = %s", id)
}

func (q *recordQuery) filter(f model.RecordFilter) *recordQuery {
	if f.ID != nil {
		q.withID(*f.ID)
	}
	if f.Category != "" {
		q.where("category = %s", f.Category)
	}
	if f.MemberID != nil {
		q.where("member_id = %s", *f.MemberID)
	}
	if len(f.Tags) > 0 {
		// && is array overlap: any requested tag matches.
		q.where("tags && %s", pq.StringArray(f.Tags))
	}
	if f.StartDate != nil {
		q.where("date >= %s", *f.StartDate)
	}
	if f.EndDate != nil {
		q.where("date <= %s", *f.EndDate)
	}
	if f.EndBefore != nil {
		q.where("date < %s", *f.EndBefore)
	}
	return q
}

func (q *recordQuery) whereClause() string {
	if len(q.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.conds, " AND ")
}

func (q *recordQuery) selectSQL() (string, []interface{}) {
	return "SELECT " + recordColumns + " FROM " + q.table + q.whereClause() +
		" ORDER BY date DESC, created_at DESC", q.args
}

func (q *recordQuery) selectOneSQL() (string, []interface{}) {
	return "SELECT " + recordColumns + " FROM " + q.table + q.whereClause(), q.args
}

func (q *recordQuery) deleteSQL() (string, []interface{}) {
	return "DELETE FROM " + q.table + q.whereClause(), q.args
}
