package scoring

import (
	"fmt"

	"github.com/abhisek/cclprep/internal/config"
)

// Scorer kinds.
const (
	ScorerRemote = "remote"
	ScorerLLM    = "llm"
	ScorerMock   = "mock"
)

// Config selects and configures the scoring gateway.
type Config struct {
	// Scorer is one of "remote", "llm", "mock".
	Scorer string

	// ScoreFunction is the backend function that scores one segment.
	ScoreFunction string

	// ResultFunction is the backend function that aggregates a session.
	ResultFunction string
}

// DefaultConfig returns the default scoring configuration.
func DefaultConfig() Config {
	return Config{
		Scorer:         ScorerRemote,
		ScoreFunction:  "score-segment",
		ResultFunction: "compute-session-result",
	}
}

// ConfigFromEnv reads CCLPREP_SCORER and the function names.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Scorer = config.Get("SCORER", cfg.Scorer)
	cfg.ScoreFunction = config.Get("SCORE_FUNCTION", cfg.ScoreFunction)
	cfg.ResultFunction = config.Get("RESULT_FUNCTION", cfg.ResultFunction)
	return cfg
}

// Validate checks the scorer kind and function names.
func (c Config) Validate() error {
	switch c.Scorer {
	case ScorerRemote:
		if c.ScoreFunction == "" || c.ResultFunction == "" {
			return fmt.Errorf("remote scorer needs both function names")
		}
	case ScorerLLM, ScorerMock:
	default:
		return fmt.Errorf("unknown scorer %q (want remote, llm, or mock)", c.Scorer)
	}
	return nil
}
