package model

import "time"

// SubmissionStatus moves strictly forward: submitted → under-review → reviewed.
type SubmissionStatus string

const (
	StatusSubmitted   SubmissionStatus = "submitted"
	StatusUnderReview SubmissionStatus = "under-review"
	StatusReviewed    SubmissionStatus = "reviewed"
)

// BadgeType is the closed set of awards a submission can carry.
type BadgeType string

const (
	BadgeFirstRiser       BadgeType = "first-riser"
	BadgeLastArrival      BadgeType = "last-arrival"
	BadgeInnovationMaster BadgeType = "innovation-master"
	BadgeTechWizard       BadgeType = "tech-wizard"
	BadgeDesignGuru       BadgeType = "design-guru"
	BadgePeoplesChoice    BadgeType = "peoples-choice"
)

// Score is one judge's evaluation of a submission. A submission holds at most
// one Score per JudgeID.
type Score struct {
	JudgeID      string    `json:"judge"        bson:"judge"`
	Innovation   float64   `json:"innovation"   bson:"innovation"`
	Technical    float64   `json:"technical"    bson:"technical"`
	Design       float64   `json:"design"       bson:"design"`
	Presentation float64   `json:"presentation" bson:"presentation"`
	Overall      float64   `json:"overall"      bson:"overall"`
	Feedback     string    `json:"feedback"     bson:"feedback"`
	ScoredAt     time.Time `json:"scoredAt"     bson:"scoredAt"`
}

// Total is the sum of the five criteria.
func (s Score) Total() float64 {
	return s.Innovation + s.Technical + s.Design + s.Presentation + s.Overall
}

// Badge is an award attached to a submission. AwardedBy is empty for badges
// granted automatically by the system.
type Badge struct {
	Type        BadgeType `json:"type"                bson:"type"`
	Name        string    `json:"name"                bson:"name"`
	Description string    `json:"description"         bson:"description"`
	AwardedBy   string    `json:"awardedBy,omitempty" bson:"awardedBy,omitempty"`
	AwardedAt   time.Time `json:"awardedAt"           bson:"awardedAt"`
}

// Submission is a project's entry for judging. There is at most one
// submission per project.
//
// RequiredJudges is the number of judges that must score the submission
// before it becomes "reviewed". It is captured when the project is submitted
// (or at the first score, when no judge was active at submission time) so
// that later judge (de)activations do not change the threshold.
type Submission struct {
	ID             string           `json:"id"             bson:"_id"`
	ProjectID      string           `json:"project"        bson:"project"`
	TeamID         string           `json:"team"           bson:"team"`
	SubmittedBy    string           `json:"submittedBy"    bson:"submittedBy"`
	LiveLink       string           `json:"liveLink"       bson:"liveLink"`
	GitHubLink     string           `json:"githubLink"     bson:"githubLink"`
	Description    string           `json:"description"    bson:"description"`
	TechStack      []string         `json:"techStack"      bson:"techStack"`
	Status         SubmissionStatus `json:"status"         bson:"status"`
	Scores         []Score          `json:"scores"         bson:"scores"`
	Badges         []Badge          `json:"badges"         bson:"badges"`
	FinalScore     float64          `json:"finalScore"     bson:"finalScore"`
	RequiredJudges int              `json:"requiredJudges" bson:"requiredJudges"`
	CreatedAt      time.Time        `json:"createdAt"      bson:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"      bson:"updatedAt"`
	Version        int64            `json:"-"              bson:"version"`
}
