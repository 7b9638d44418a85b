package models

import "time"

// RiskLevel is the derived severity classification of a risk.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// RiskCategory groups risks for reporting.
type RiskCategory string

const (
	RiskCategoryOperational RiskCategory = "operational"
	RiskCategoryFinancial   RiskCategory = "financial"
	RiskCategoryCompliance  RiskCategory = "compliance"
	RiskCategoryReputation  RiskCategory = "reputation"
	RiskCategoryStrategic   RiskCategory = "strategic"
)

// RiskStatus tracks where a risk sits in its management lifecycle.
type RiskStatus string

const (
	RiskStatusIdentified RiskStatus = "identified"
	RiskStatusAssessed   RiskStatus = "assessed"
	RiskStatusMitigated  RiskStatus = "mitigated"
	RiskStatusMonitored  RiskStatus = "monitored"
	RiskStatusClosed     RiskStatus = "closed"
)

// MitigationStatus tracks a single mitigation measure.
type MitigationStatus string

const (
	MitigationStatusPlanned    MitigationStatus = "planned"
	MitigationStatusInProgress MitigationStatus = "in_progress"
	MitigationStatusCompleted  MitigationStatus = "completed"
	MitigationStatusOverdue    MitigationStatus = "overdue"
)

// RiskAssessment scores a risk at a point in time. InherentRiskScore is
// supplied by the caller (commonly likelihood * impact) and trusted as-is.
type RiskAssessment struct {
	ID                string    `json:"id"`
	RiskID            string    `json:"riskId"`
	Likelihood        int       `json:"likelihood"`
	Impact            int       `json:"impact"`
	InherentRiskScore int       `json:"inherentRiskScore"`
	ResidualRiskScore int       `json:"residualRiskScore"`
	AssessedBy        string    `json:"assessedBy"`
	AssessedAt        time.Time `json:"assessedAt"`
	Notes             string    `json:"notes,omitempty"`
}

// RiskMitigation is one planned or executed mitigation measure.
type RiskMitigation struct {
	ID                string           `json:"id"`
	RiskID            string           `json:"riskId"`
	Description       string           `json:"description"`
	ResponsiblePerson string           `json:"responsiblePerson"`
	DueDate           time.Time        `json:"dueDate"`
	Status            MitigationStatus `json:"status"`
	CompletedDate     *time.Time       `json:"completedDate,omitempty"`
	CompletedBy       *string          `json:"completedBy,omitempty"`
	Effectiveness     *int             `json:"effectiveness,omitempty"`
	Notes             string           `json:"notes,omitempty"`
}

// Risk is an entry in the risk register. Level is recomputed from the most
// recently added assessment's inherent score, not from history.
type Risk struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Category       RiskCategory     `json:"category"`
	Level          RiskLevel        `json:"level"`
	Status         RiskStatus       `json:"status"`
	Owner          string           `json:"owner"`
	IdentifiedDate time.Time        `json:"identifiedDate"`
	IdentifiedBy   string           `json:"identifiedBy"`
	RelatedClause  string           `json:"relatedClause,omitempty"`
	RelatedProcess string           `json:"relatedProcess,omitempty"`
	Assessments    []RiskAssessment `json:"assessments"`
	Mitigations    []RiskMitigation `json:"mitigations"`
	LastReviewDate *time.Time       `json:"lastReviewDate,omitempty"`
	NextReviewDate *time.Time       `json:"nextReviewDate,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// LatestScore returns the most recent assessment's inherent score, zero when
// the risk has never been assessed.
func (r *Risk) LatestScore() int {
	if len(r.Assessments) == 0 {
		return 0
	}
	return r.Assessments[len(r.Assessments)-1].InherentRiskScore
}

// LevelForScore maps an inherent risk score onto the register's level bands.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= 15:
		return RiskLevelHigh
	case score >= 8:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// RiskReport is the read-side aggregation over the register.
type RiskReport struct {
	TotalRisks        int                  `json:"totalRisks"`
	RisksByLevel      map[RiskLevel]int    `json:"risksByLevel"`
	RisksByCategory   map[RiskCategory]int `json:"risksByCategory"`
	RisksByStatus     map[RiskStatus]int   `json:"risksByStatus"`
	TopRisks          []Risk               `json:"topRisks"`
	ReportGeneratedAt time.Time            `json:"reportGeneratedAt"`
}
