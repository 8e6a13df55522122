package generatemenurecommendation

import (
	"nutritrack/internal/models"
	"nutritrack/internal/pipeline"
	"nutritrack/internal/recommendation"
)

// Input is read from the job variables.
type Input struct {
	UserID   int64                  `json:"userId"`
	Prompt   string                 `json:"prompt"`
	Criteria *models.FilterCriteria `json:"criteria"`
}

// Output is written back as job variables.
type Output struct {
	RunID          string                      `json:"runId"`
	Recommendation string                      `json:"recommendation"`
	Items          []recommendation.ScoredItem `json:"items"`
	Stages         []pipeline.StageOutput      `json:"stages"`
}
