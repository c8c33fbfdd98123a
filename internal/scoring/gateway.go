package scoring

import (
	"fmt"

	"github.com/abhisek/cclprep/internal/llm"
	"github.com/abhisek/cclprep/internal/stt"
)

// New builds the gateway selected by cfg. b is required for the remote
// scorer and p for the LLM scorer; transcriber is optional.
func New(cfg Config, b Backend, p llm.Provider, transcriber stt.Transcriber) (Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Scorer {
	case ScorerRemote:
		if b == nil {
			return nil, fmt.Errorf("remote scorer needs a backend client")
		}
		return NewRemoteGateway(b, cfg), nil
	case ScorerLLM:
		if p == nil {
			return nil, fmt.Errorf("llm scorer needs an LLM provider")
		}
		return NewLLMGateway(p, transcriber), nil
	default:
		return NewMockGateway(), nil
	}
}
