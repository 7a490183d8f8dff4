package triage

import "github.com/friendfilter/backend/internal/models"

// Summarize folds outcomes into counts. Errors count toward Processed only.
// The outcome order is kept as given.
func Summarize(outcomes []models.TriageOutcome) models.BatchSummary {
	summary := models.BatchSummary{
		Processed: len(outcomes),
		Results:   make([]models.TriageOutcome, len(outcomes)),
	}
	copy(summary.Results, outcomes)
	for _, o := range outcomes {
		switch o.Action {
		case models.ActionAccepted:
			summary.Accepted++
		case models.ActionDeclined:
			summary.Declined++
		}
	}
	return summary
}
