package scoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/model"
)

// BadgeInfo is the display text of a badge type.
type BadgeInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog is the closed set of badge types with their default display text.
var Catalog = map[model.BadgeType]BadgeInfo{
	model.BadgeFirstRiser:       {"The First Riser", "First team to submit their project"},
	model.BadgeLastArrival:      {"The Last Arrival", "Last team to submit"},
	model.BadgeInnovationMaster: {"Innovation Master", "Most innovative solution"},
	model.BadgeTechWizard:       {"Tech Wizard", "Best technical implementation"},
	model.BadgeDesignGuru:       {"Design Guru", "Outstanding UI/UX design"},
	model.BadgePeoplesChoice:    {"People's Choice", "Most popular project"},
}

// NewBadge builds a badge of type t. Empty name or description fall back to
// the catalog. awardedBy is empty for system-awarded badges.
func NewBadge(t model.BadgeType, name, description, awardedBy string, now time.Time) (model.Badge, error) {
	info, ok := Catalog[t]
	if !ok {
		return model.Badge{}, apperror.ValidationFailed("type", fmt.Sprintf("unknown badge type %q", t))
	}
	if name = strings.TrimSpace(name); name == "" {
		name = info.Name
	}
	if description = strings.TrimSpace(description); description == "" {
		description = info.Description
	}
	return model.Badge{
		Type:        t,
		Name:        name,
		Description: description,
		AwardedBy:   awardedBy,
		AwardedAt:   now,
	}, nil
}

// HasBadge reports whether sub already carries a badge of type t.
func HasBadge(sub *model.Submission, t model.BadgeType) bool {
	for _, b := range sub.Badges {
		if b.Type == t {
			return true
		}
	}
	return false
}

// AwardBadge appends badge to sub. A submission carries at most one badge per
// type; a second award of the same type is a Conflict and leaves sub unchanged.
func AwardBadge(sub *model.Submission, badge model.Badge) error {
	if HasBadge(sub, badge.Type) {
		return apperror.ConflictMessage(fmt.Sprintf("badge %q already awarded to this submission", badge.Type))
	}
	sub.Badges = append(sub.Badges, badge)
	return nil
}

// RemoveBadge deletes the badge at index and returns it. An index outside
// the badge list is a Validation error and leaves sub unchanged.
func RemoveBadge(sub *model.Submission, index int) (model.Badge, error) {
	if index < 0 || index >= len(sub.Badges) {
		return model.Badge{}, apperror.ValidationFailed("badgeIndex",
			fmt.Sprintf("badge index %d out of range (submission has %d badges)", index, len(sub.Badges)))
	}
	removed := sub.Badges[index]
	badges := make([]model.Badge, 0, len(sub.Badges)-1)
	badges = append(badges, sub.Badges[:index]...)
	badges = append(badges, sub.Badges[index+1:]...)
	sub.Badges = badges
	return removed, nil
}
