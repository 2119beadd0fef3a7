package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/skillgate/ai-interviewer/internal/ai"
	"github.com/skillgate/ai-interviewer/internal/ai/gemini"
	"github.com/skillgate/ai-interviewer/internal/backend"
	"github.com/skillgate/ai-interviewer/internal/interview"
	"github.com/skillgate/ai-interviewer/internal/logger"
	"github.com/skillgate/ai-interviewer/internal/rtc"
	"github.com/skillgate/ai-interviewer/internal/secrets"
	"github.com/skillgate/ai-interviewer/internal/transcript"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	// endCommand finishes the interview from the transcript feed.
	endCommand = "/end"
)

var prompt = promptui.Select{
	Label: "Start the interview session?",
	Items: []string{PromptYes, PromptNo},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single interview session",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-aprove", "y", false, "do not ask for confirmation before joining the channel")
	runCmd.Flags().StringP("handoff-file", "f", "", "intake hand-off file written by the application step")

	viper.BindPFlag("session.handoff-file", runCmd.Flags().Lookup("handoff-file"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the ai-interviewer", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil || config.Backend == nil {
		logger.Fatal("backend configuration is required")
	}

	if config.Signaling == nil || config.Signaling.URL == "" {
		logger.Fatal("signaling gateway url is required under signaling.url to join the channel")
	}

	token := resolveBackendToken(config)

	be := backend.New(ctx, logger, config.Backend.URL, token)
	transport := rtc.NewWSTransport(config.Signaling.URL, logger)

	classifier, err := newVerdictClassifier(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("verdict inference disabled", zap.Error(err))
	}

	sessionCfg := interview.Config{}
	if config.Session != nil {
		sessionCfg.Channel = config.Session.Channel
		sessionCfg.HandoffFile = config.Session.HandoffFile
		sessionCfg.IntakeToken = config.Session.IntakeToken
	}

	orch := interview.New(sessionCfg, be, transport, classifier, logger)

	if cmd.Flag("auto-aprove").Value.String() == "false" {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if action == PromptNo {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	if err := orch.Start(ctx); err != nil {
		logger.Fatal("starting the session", zap.Error(err))
	}

	defer func() {
		if err := orch.Close(context.Background()); err != nil {
			logger.Warn("session teardown", zap.Error(err))
		}
	}()

	if err := feedTranscript(ctx, orch, os.Stdin, logger); err != nil {
		logger.Warn("transcript feed interrupted", zap.Error(err))
	}

	result, submitted, err := orch.EndInterview(context.Background())
	if err != nil {
		logger.Fatal("ending the session", zap.Error(err))
	}

	pretty, _ = json.MarshalIndent(result, "", "  ")
	fmt.Println(string(pretty))

	if !submitted {
		logger.Warn("result was not persisted; ask HR to re-run submission")
	}
}

// feedTranscript reads "speaker: text" lines from the external transcription
// pipe until EOF, the end command, or cancellation.
func feedTranscript(ctx context.Context, orch *interview.Orchestrator, in *os.File, logger *zap.Logger) error {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == endCommand {
			return nil
		}

		speaker, text, found := strings.Cut(line, ":")
		if !found {
			logger.Debug("skipping malformed transcript line", zap.String("line", truncateLine(line)))
			continue
		}

		orch.Append(parseSpeaker(speaker), strings.TrimSpace(text))
	}

	return scanner.Err()
}

func parseSpeaker(s string) transcript.Speaker {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ai", "agent", "interviewer":
		return transcript.SpeakerAI
	case "system":
		return transcript.SpeakerSystem
	default:
		return transcript.SpeakerApplicant
	}
}

func truncateLine(s string) string {
	return logger.TruncateForLog(s, 80)
}

func resolveBackendToken(config *Config) string {
	tokenFile := strings.TrimSpace(config.Backend.TokenFile)
	if tokenFile == "" {
		tokenFile = strings.TrimSpace(viper.GetString("backend.token-file"))
	}

	if tokenFile == "" {
		// The backend may run without auth in local setups.
		return ""
	}

	token, err := secrets.Load(secrets.Source{
		Name: "backend token",
		File: tokenFile,
	})
	if err != nil {
		log.Fatalf("loading backend token: %s", err)
	}

	return token
}

func newVerdictClassifier(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Classifier, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required when ai verdict inference is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model)
	if err != nil {
		return nil, err
	}

	return gemini.NewClassifier(generator, logger, cfg.Gemini.MaxLogLength), nil
}
