// Package main provides the CLI entrypoint for easytalk.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/easytalk/internal/app"
	"github.com/verte-zerg/easytalk/internal/config"
	"github.com/verte-zerg/easytalk/internal/model"
	"github.com/verte-zerg/easytalk/internal/remote"
	"github.com/verte-zerg/easytalk/internal/speech"
	"github.com/verte-zerg/easytalk/internal/store"
	"github.com/verte-zerg/easytalk/internal/tui"
)

const (
	defaultUser     = "guest"
	defaultPassword = "guest123"
	defaultLogLevel = "info"
	defaultTimeout  = 30 * time.Second

	envUser     = "EASYTALK_USER"
	envPassword = "EASYTALK_PASSWORD"
)

var (
	rootConfigPath   string
	rootDBPath       string
	rootUser         string
	rootPassword     string
	rootLogLevel     string
	rootLogFile      string
	rootStyle        string
	rootAPIKey       string
	rootSpeech       string
	rootHistoryLimit int

	exportDir = "."
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "easytalk",
		Short:         "Rewrite difficult Korean into easy Korean",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runTUICmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootConfigPath, "config", config.DefaultConfigPath(), "config file path")
	flags.StringVar(&rootDBPath, "db", config.DefaultDBPath(), "database path")
	flags.StringVar(&rootUser, "user", envOr(envUser, defaultUser), "account id")
	flags.StringVar(&rootPassword, "password", envOr(envPassword, defaultPassword), "account password")
	flags.StringVar(&rootLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&rootLogFile, "log-file", "", "log file (default: stderr, or the state dir for the TUI)")
	flags.StringVar(&rootStyle, "style", string(model.DefaultStyle), "speech style when none is stored (polite, casual)")
	flags.StringVar(&rootAPIKey, "api-key", "", "Gemini API key")
	flags.StringVar(&rootSpeech, "speech", speech.EngineNone, "speech engine (none, espeak, openai)")
	flags.IntVar(&rootHistoryLimit, "history-limit", model.HistoryLimit, "number of conversions to keep")

	rootCmd.AddCommand(newTUICmd())
	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newStyleCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newDictCmd())
	rootCmd.AddCommand(newProposeCmd())
	rootCmd.AddCommand(newKeyCmd())
	rootCmd.AddCommand(newDebugCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive converter",
		Args:  cobra.NoArgs,
		RunE:  runTUICmd,
	}
}

func runTUICmd(cmd *cobra.Command, _ []string) error {
	rt, err := setup(cmd, true)
	if err != nil {
		return err
	}
	defer rt.close()
	opts := tui.Options{Logger: rt.logger}
	if cmd.Flags().Changed("user") || os.Getenv(envUser) != "" {
		opts.User = rootUser
		opts.Password = rootPassword
	}
	if err := tui.Run(cmd.Context(), rt.svc, opts); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// settings is the merged result of flags, the config file and the
// environment, in that order of precedence.
type settings struct {
	apiKey       string
	remoteURL    string
	timeout      time.Duration
	rateLimit    float64
	engine       string
	voice        string
	speechRate   float64
	openAIKey    string
	player       string
	style        model.SpeechStyle
	historyLimit int
	logLevel     string
	logFile      string
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	if err := config.LoadEnv(config.DefaultEnvPath(), ".env"); err != nil {
		return settings{}, err
	}
	fileCfg, err := config.LoadConfig(rootConfigPath)
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.ApplyEnv(&fileCfg); err != nil {
		return settings{}, err
	}

	applyStringConfig(cmd, "api-key", &rootAPIKey, fileCfg.Remote.APIKey)
	applyStringConfig(cmd, "speech", &rootSpeech, fileCfg.Speech.Engine)
	applyStringConfig(cmd, "style", &rootStyle, fileCfg.Session.Style)
	applyIntConfig(cmd, "history-limit", &rootHistoryLimit, fileCfg.Session.HistoryLimit)
	applyStringConfig(cmd, "log-level", &rootLogLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &rootLogFile, fileCfg.Log.File)

	s := settings{
		apiKey:       strings.TrimSpace(rootAPIKey),
		remoteURL:    stringValue(fileCfg.Remote.URL, ""),
		timeout:      defaultTimeout,
		rateLimit:    floatValue(fileCfg.Remote.RateLimit, 0),
		engine:       rootSpeech,
		voice:        stringValue(fileCfg.Speech.Voice, ""),
		speechRate:   floatValue(fileCfg.Speech.Rate, speech.DefaultRate),
		openAIKey:    stringValue(fileCfg.Speech.OpenAIKey, ""),
		player:       stringValue(fileCfg.Speech.Player, ""),
		historyLimit: rootHistoryLimit,
		logLevel:     rootLogLevel,
		logFile:      rootLogFile,
	}
	if fileCfg.Remote.Timeout != nil {
		d, err := time.ParseDuration(*fileCfg.Remote.Timeout)
		if err != nil {
			return settings{}, fmt.Errorf("invalid remote timeout: %w", err)
		}
		s.timeout = d
	}
	st, err := model.ParseStyle(rootStyle)
	if err != nil {
		return settings{}, err
	}
	s.style = st
	if err := validateSettings(s); err != nil {
		return settings{}, err
	}
	return s, nil
}

func validateSettings(s settings) error {
	if s.historyLimit <= 0 {
		return fmt.Errorf("history-limit must be > 0")
	}
	if s.rateLimit < 0 {
		return fmt.Errorf("rate-limit must be >= 0")
	}
	if s.speechRate <= 0 || s.speechRate > 4 {
		return fmt.Errorf("speech rate must be in (0, 4]")
	}
	if s.timeout <= 0 {
		return fmt.Errorf("remote timeout must be > 0")
	}
	return nil
}

// runtime holds everything a command needs after setup.
type runtime struct {
	settings settings
	logger   *logrus.Logger
	store    *store.Store
	speaker  speech.Speaker
	svc      *app.Service
	closers  []func()
}

func (r *runtime) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// setup loads settings and wires storage, the model client, speech and
// the service. Interactive runs log to a file so the TUI stays clean.
func setup(cmd *cobra.Command, interactive bool) (*runtime, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	rt := &runtime{settings: s}

	logger, closeLog, err := newLogger(s.logLevel, s.logFile, interactive, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	rt.logger = logger
	rt.closers = append(rt.closers, closeLog)

	st, err := store.Open(rootDBPath)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	st.SetHistoryLimit(s.historyLimit)
	rt.store = st
	rt.closers = append(rt.closers, func() {
		if cerr := st.Close(); cerr != nil {
			logger.WithError(cerr).Warn("failed to close db")
		}
	})

	speaker, err := speech.New(speech.Config{
		Engine:    s.engine,
		Voice:     s.voice,
		OpenAIKey: s.openAIKey,
		AudioDir:  config.DefaultAudioDir(),
		Player:    s.player,
	}, logger)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.speaker = speaker

	client := remote.New(remote.Config{
		APIKey:    s.apiKey,
		BaseURL:   s.remoteURL,
		Timeout:   s.timeout,
		RateLimit: s.rateLimit,
	}, logger)

	svcSpeaker := speaker
	if !interactive {
		// One-shot commands exit before background speech would finish.
		svcSpeaker = speech.Silent{}
	}
	rt.svc = app.New(client, st, app.Options{
		Logger:       logger,
		Speaker:      svcSpeaker,
		SpeechRate:   s.speechRate,
		HistoryLimit: s.historyLimit,
		DefaultStyle: s.style,
		ConfigAPIKey: s.apiKey,
		ExportDir:    exportDir,
	})
	return rt, nil
}

// login opens a session for one-shot commands.
func (r *runtime) login(ctx context.Context) (*model.Session, error) {
	sess, alert, err := r.svc.Login(ctx, rootUser, rootPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", alert.Message, err)
	}
	return sess, nil
}

func newLogger(level, file string, interactive bool, stderr io.Writer) (*logrus.Logger, func(), error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(parsed)

	if file == "" && interactive {
		file = config.DefaultLogPath()
	}
	if file == "" {
		if !interactive && parsed < logrus.DebugLevel {
			// Keep one-shot output readable unless debugging.
			logger.SetLevel(min(parsed, logrus.WarnLevel))
		}
		logger.SetOutput(stderr)
		return logger, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(f)
	return logger, func() { _ = f.Close() }, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func stringValue(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

func floatValue(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func envOr(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}
