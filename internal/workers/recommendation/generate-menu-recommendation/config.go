package generatemenurecommendation

import (
	"time"

	"nutritrack/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	MaxJobsActive int
}

// LoadConfig reads the worker section named after the task type.
func LoadConfig(cfg *config.Config) *Config {
	wc := config.GetWorkerConfig(cfg, TaskType)
	return &Config{
		Timeout:       config.GetDuration(wc.Timeout),
		MaxJobsActive: wc.MaxJobsActive,
	}
}
