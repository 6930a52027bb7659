package record

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ShubhamPrakash26/Prescription-Tracker-Backend/internal/model"
	apperrors "github.com/ShubhamPrakash26/Prescription-Tracker-Backend/pkg/errors"
)

// ParseFilter converts raw query values into a typed filter. A date-only
// end_date covers the whole of that day: it becomes an exclusive bound at
// the next midnight, which holds at any storage precision.
func ParseFilter(q model.ListRecordsQuery) (model.RecordFilter, error) {
	var f model.RecordFilter

	f.Category = strings.TrimSpace(q.Category)
	f.Tags = model.SplitTags(q.Tags)

	var err error
	if f.MemberID, err = parseMemberID(q.MemberID); err != nil {
		return f, err
	}

	if v := strings.TrimSpace(q.ID); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, apperrors.NewBadRequest("Invalid id", err)
		}
		f.ID = &id
	}

	if v := strings.TrimSpace(q.StartDate); v != "" {
		start, _, err := model.ParseDate(v)
		if err != nil {
			return f, apperrors.NewBadRequest("Invalid start_date", err)
		}
		f.StartDate = &start
	}

	if v := strings.TrimSpace(q.EndDate); v != "" {
		end, dayOnly, err := model.ParseDate(v)
		if err != nil {
			return f, apperrors.NewBadRequest("Invalid end_date", err)
		}
		if dayOnly {
			next := end.AddDate(0, 0, 1)
			f.EndBefore = &next
		} else {
			f.EndDate = &end
		}
	}

	return f, nil
}
