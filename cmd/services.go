package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/cclprep/internal/audio"
	"github.com/abhisek/cclprep/internal/backend"
	"github.com/abhisek/cclprep/internal/dialogue"
	"github.com/abhisek/cclprep/internal/llm"
	"github.com/abhisek/cclprep/internal/report"
	"github.com/abhisek/cclprep/internal/scoring"
	sess "github.com/abhisek/cclprep/internal/session"
	"github.com/abhisek/cclprep/internal/store"
	"github.com/abhisek/cclprep/internal/stt"
)

// services holds everything a practice run needs, built once per command.
type services struct {
	store    *store.Store
	events   store.EventRepo
	source   dialogue.Source
	client   *backend.Client
	pg       *backend.PGSource
	gateway  scoring.Gateway
	reporter report.Reporter
	flush    func()
	userID   string
	execCfg  audio.ExecConfig
	urls     *audio.ObjectURLs

	mu      sync.Mutex
	devices []*audio.ExecDevice
}

// buildServices opens the store and wires the backend, the dialogue
// source, the scoring gateway and the error reporter. scorer overrides
// CCLPREP_SCORER when non-empty.
func buildServices(cmd *cobra.Command, scorer string) (*services, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	s := &services{
		store:   st,
		events:  st.EventRepo(),
		execCfg: audio.ExecConfigFromEnv(),
		urls:    audio.NewObjectURLs(),
		flush:   func() {},
	}

	if err := s.wireSource(ctx); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.wireGateway(ctx, scorer); err != nil {
		s.Close()
		return nil, err
	}

	reporter, flush, err := report.New(report.ConfigFromEnv())
	if err != nil {
		slog.Warn("sentry disabled", "error", err)
		reporter, flush = report.Log{}, func() {}
	}
	s.reporter, s.flush = reporter, flush
	return s, nil
}

// wireSource picks Postgres when CCLPREP_DATABASE_URL is set and the REST
// API otherwise. The REST client is kept either way when configured: it
// signs reference audio URLs.
func (s *services) wireSource(ctx context.Context) error {
	cfg := backend.ConfigFromEnv()

	if err := cfg.Validate(); err == nil {
		client, err := backend.NewClient(cfg, http.DefaultClient)
		if err != nil {
			return fmt.Errorf("backend client: %w", err)
		}
		s.client = client
		s.source = client
		if cfg.AccessToken != "" {
			if err := backend.CheckToken(cfg.AccessToken, time.Now()); err != nil {
				return fmt.Errorf("access token: %w", err)
			}
			if id, err := backend.UserIDFromToken(cfg.AccessToken); err == nil {
				s.userID = id
			}
		}
	} else if cfg.DatabaseURL == "" {
		return fmt.Errorf("no dialogue source configured: %w", err)
	}

	if cfg.DatabaseURL != "" {
		pg, err := backend.NewPGSource(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		s.pg = pg
		s.source = pg
	}
	return nil
}

func (s *services) wireGateway(ctx context.Context, scorer string) error {
	cfg := scoring.ConfigFromEnv()
	if scorer != "" {
		cfg.Scorer = scorer
	}

	var b scoring.Backend
	if s.client != nil {
		b = s.client
	}

	var (
		provider    llm.Provider
		transcriber stt.Transcriber
	)
	if cfg.Scorer == scoring.ScorerLLM {
		llmCfg := llm.ConfigFromEnv()
		if err := llmCfg.Validate(); err != nil {
			discovered, ok := llm.DiscoverConfig()
			if !ok {
				return fmt.Errorf("llm scorer: %w", err)
			}
			llmCfg = discovered
		}
		p, err := llm.NewProvider(ctx, llmCfg, s.events)
		if err != nil {
			return fmt.Errorf("llm scorer: %w", err)
		}
		provider = p

		if dg, err := stt.NewDeepgram(stt.DeepgramConfigFromEnv()); err == nil {
			transcriber = dg
		} else if !llmCfg.AcceptsAudio() {
			return fmt.Errorf("llm scorer: %s cannot take recordings and no transcriber is configured: %w",
				llmCfg.Provider, err)
		} else {
			slog.Info("transcription disabled, recordings go to the model", "provider", llmCfg.Provider, "reason", err)
		}
	}

	gw, err := scoring.New(cfg, b, provider, transcriber)
	if err != nil {
		return fmt.Errorf("scoring gateway: %w", err)
	}
	s.gateway = gw
	return nil
}

// factory returns a constructor for practice controllers with opts. Each
// controller gets its own player and microphone.
func (s *services) factory(opts sess.Options) func() (*sess.Controller, error) {
	return func() (*sess.Controller, error) {
		device := audio.NewExecDevice(s.execCfg, s.urls)
		s.mu.Lock()
		s.devices = append(s.devices, device)
		s.mu.Unlock()

		var signer audio.Signer
		if s.client != nil {
			signer = s.client
		}
		ttl := audio.DefaultSignedURLExpiry
		if s.client != nil {
			ttl = s.client.Config().SignedURLTTL
		}

		return sess.NewController(sess.Deps{
			Source:   s.source,
			Player:   audio.NewPlayer(device, signer, ttl),
			Recorder: audio.NewRecorder(audio.NewExecMicrophone(s.execCfg)),
			Gateway:  s.gateway,
			URLs:     s.urls,
			Reporter: s.reporter,
			Events:   s.events,
			UserID:   s.userID,
		}, opts)
	}
}

// Close releases devices, connections and the store.
func (s *services) Close() {
	s.mu.Lock()
	for _, d := range s.devices {
		d.Close()
	}
	s.devices = nil
	s.mu.Unlock()

	if s.pg != nil {
		s.pg.Close()
	}
	if s.flush != nil {
		s.flush()
	}
	s.store.Close()
}

// sessionOptions builds controller options from the practice flags.
func sessionOptions(cmd *cobra.Command) (sess.Options, error) {
	relaxed, _ := cmd.Flags().GetBool("relaxed")
	policy, _ := cmd.Flags().GetString("on-scoring-failure")
	minRec, _ := cmd.Flags().GetDuration("min-recording")

	opts := sess.StrictOptions()
	if relaxed {
		opts = sess.RelaxedOptions()
	}
	p, err := sess.ParseFailurePolicy(policy)
	if err != nil {
		return sess.Options{}, err
	}
	opts.OnScoringFailure = p
	opts.MinRecording = minRec
	return opts, nil
}

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("relaxed", false, "Free navigation; submitting moves on while scoring runs in the background")
	cmd.Flags().String("on-scoring-failure", "retry", "What a failed score does: retry, silent, or block")
	cmd.Flags().Duration("min-recording", sess.DefaultMinRecording, "Shortest recording accepted for scoring")
	cmd.Flags().String("scorer", "", "Scoring backend: remote, llm, or mock (overrides CCLPREP_SCORER)")
}
