package syncer

import (
	"github.com/julianstephens/daylog/internal/models"
	"github.com/julianstephens/daylog/internal/utils"
)

// MergeMonth combines a local and a remote month day by day. The result
// holds every day present on either side; where both have a day the later
// updatedAt wins and a tie keeps the local copy. A missing or unparseable
// timestamp counts as the epoch.
func MergeMonth(local, remote models.MonthRecord) models.MonthRecord {
	merged := remote.Clone()
	if merged.Month == "" {
		merged.Month = local.Month
	}

	for key, day := range local.Entries {
		theirs, ok := merged.Entries[key]
		if !ok || !day.UpdatedTime().Before(theirs.UpdatedTime()) {
			merged.Entries[key] = day.Clone()
		}
	}

	merged.UpdatedAt = laterStamp(local.UpdatedAt, remote.UpdatedAt)
	return merged
}

// PullMonth adopts remote days that are missing locally or strictly newer.
// Days that exist only locally are kept.
func PullMonth(local, remote models.MonthRecord) models.MonthRecord {
	merged := local.Clone()
	if merged.Month == "" {
		merged.Month = remote.Month
	}

	for key, day := range remote.Entries {
		mine, ok := merged.Entries[key]
		if !ok || day.UpdatedTime().After(mine.UpdatedTime()) {
			merged.Entries[key] = day.Clone()
		}
	}

	merged.UpdatedAt = laterStamp(local.UpdatedAt, remote.UpdatedAt)
	return merged
}

func laterStamp(local, remote string) string {
	if utils.ParseInstant(remote).After(utils.ParseInstant(local)) {
		return remote
	}
	return local
}
