package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smap-labs/smap-compliance-api/internal/dto"
	"github.com/smap-labs/smap-compliance-api/internal/models"
)

type riskRepoStub struct {
	risks []models.Risk
}

func (r *riskRepoStub) All(ctx context.Context) ([]models.Risk, error) {
	return append([]models.Risk(nil), r.risks...), nil
}

func (r *riskRepoStub) GetByID(ctx context.Context, id string) (*models.Risk, error) {
	for _, stored := range r.risks {
		if stored.ID == id {
			copy := stored
			return &copy, nil
		}
	}
	return nil, nil
}

func (r *riskRepoStub) Append(ctx context.Context, risk *models.Risk) error {
	r.risks = append(r.risks, *risk)
	return nil
}

func (r *riskRepoStub) Update(ctx context.Context, risk *models.Risk) (bool, error) {
	for i := range r.risks {
		if r.risks[i].ID == risk.ID {
			r.risks[i] = *risk
			return true, nil
		}
	}
	return false, nil
}

func (r *riskRepoStub) Delete(ctx context.Context, id string) (bool, error) {
	for i := range r.risks {
		if r.risks[i].ID == id {
			r.risks = append(r.risks[:i], r.risks[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func seedRisk(t *testing.T, svc *RiskService, title string) *models.Risk {
	t.Helper()
	risk, err := svc.Create(context.Background(), dto.CreateRiskRequest{
		Title:    title,
		Category: string(models.RiskCategoryCompliance),
		Owner:    "owner-1",
	}, "user-1")
	require.NoError(t, err)
	return risk
}

func assess(t *testing.T, svc *RiskService, riskID string, score int) *models.Risk {
	t.Helper()
	risk, err := svc.AddAssessment(context.Background(), riskID, dto.AddAssessmentRequest{
		Likelihood:        3,
		Impact:            3,
		InherentRiskScore: score,
	}, "assessor-1")
	require.NoError(t, err)
	return risk
}

func TestRiskServiceCreateStartsIdentified(t *testing.T) {
	repo := &riskRepoStub{}
	svc := NewRiskService(repo, &auditStub{}, nil, nil, 5)

	risk := seedRisk(t, svc, "Vendor data leak")
	require.Equal(t, models.RiskStatusIdentified, risk.Status)
	require.Equal(t, models.RiskLevelLow, risk.Level)
	require.Empty(t, risk.Assessments)
}

func TestRiskServiceLevelBands(t *testing.T) {
	repo := &riskRepoStub{}
	svc := NewRiskService(repo, nil, nil, nil, 5)
	risk := seedRisk(t, svc, "Access control gap")

	updated := assess(t, svc, risk.ID, 7)
	require.Equal(t, models.RiskLevelLow, updated.Level)

	updated = assess(t, svc, risk.ID, 8)
	require.Equal(t, models.RiskLevelMedium, updated.Level)

	updated = assess(t, svc, risk.ID, 15)
	require.Equal(t, models.RiskLevelHigh, updated.Level)
	require.Equal(t, models.RiskStatusAssessed, updated.Status)
	require.NotNil(t, updated.LastReviewDate)
}

func TestRiskServiceMostRecentAssessmentWins(t *testing.T) {
	repo := &riskRepoStub{}
	svc := NewRiskService(repo, nil, nil, nil, 5)
	risk := seedRisk(t, svc, "Backup recovery untested")

	assess(t, svc, risk.ID, 20)
	updated := assess(t, svc, risk.ID, 4)
	// A lower follow-up score downgrades the level; history does not pin it.
	require.Equal(t, models.RiskLevelLow, updated.Level)
	require.Len(t, updated.Assessments, 2)
}

func TestRiskServiceMitigationLifecycle(t *testing.T) {
	repo := &riskRepoStub{}
	svc := NewRiskService(repo, nil, nil, nil, 5)
	risk := seedRisk(t, svc, "Unpatched servers")

	updated, err := svc.AddMitigation(context.Background(), risk.ID, dto.AddMitigationRequest{
		Description:       "Apply quarterly patch cycle",
		ResponsiblePerson: "ops-lead",
		DueDate:           risk.CreatedAt.AddDate(0, 1, 0),
	}, "user-1")
	require.NoError(t, err)
	require.Equal(t, models.RiskStatusMitigated, updated.Status)
	require.Equal(t, models.MitigationStatusPlanned, updated.Mitigations[0].Status)
	require.Nil(t, updated.Mitigations[0].CompletedDate)

	completed := string(models.MitigationStatusCompleted)
	updated, err = svc.UpdateMitigation(context.Background(), risk.ID, updated.Mitigations[0].ID, dto.UpdateMitigationRequest{Status: &completed}, "user-2")
	require.NoError(t, err)
	require.NotNil(t, updated.Mitigations[0].CompletedDate)
	require.Equal(t, "user-2", *updated.Mitigations[0].CompletedBy)
	firstStamp := *updated.Mitigations[0].CompletedDate

	// Completing again does not re-stamp.
	updated, err = svc.UpdateMitigation(context.Background(), risk.ID, updated.Mitigations[0].ID, dto.UpdateMitigationRequest{Status: &completed}, "user-3")
	require.NoError(t, err)
	require.Equal(t, firstStamp, *updated.Mitigations[0].CompletedDate)
	require.Equal(t, "user-2", *updated.Mitigations[0].CompletedBy)
}

func TestRiskServiceListFilters(t *testing.T) {
	repo := &riskRepoStub{}
	svc := NewRiskService(repo, nil, nil, nil, 5)
	first := seedRisk(t, svc, "High exposure")
	seedRisk(t, svc, "Low exposure")
	assess(t, svc, first.ID, 20)

	high, err := svc.List(context.Background(), RiskFilter{Level: models.RiskLevelHigh})
	require.NoError(t, err)
	require.Len(t, high, 1)
	require.Equal(t, first.ID, high[0].ID)

	compliance, err := svc.List(context.Background(), RiskFilter{Category: models.RiskCategoryCompliance})
	require.NoError(t, err)
	require.Len(t, compliance, 2)
}

func TestRiskServiceGenerateReport(t *testing.T) {
	repo := &riskRepoStub{}
	svc := NewRiskService(repo, nil, nil, nil, 2)

	scores := []int{16, 25, 18, 4}
	ids := make([]string, 0, len(scores))
	for i, score := range scores {
		risk := seedRisk(t, svc, "Risk "+string(rune('A'+i)))
		assess(t, svc, risk.ID, score)
		ids = append(ids, risk.ID)
	}

	report, err := svc.GenerateReport(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, report.TotalRisks)
	require.Equal(t, 3, report.RisksByLevel[models.RiskLevelHigh])
	require.Equal(t, 1, report.RisksByLevel[models.RiskLevelLow])
	require.Equal(t, 4, report.RisksByStatus[models.RiskStatusAssessed])
	// Shortlist is capped and ordered by latest score descending.
	require.Len(t, report.TopRisks, 2)
	require.Equal(t, ids[1], report.TopRisks[0].ID)
	require.Equal(t, ids[2], report.TopRisks[1].ID)
}

func TestRiskServiceDeleteAbsent(t *testing.T) {
	svc := NewRiskService(&riskRepoStub{}, nil, nil, nil, 5)
	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
}
