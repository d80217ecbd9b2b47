package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/easytalk/internal/app"
	"github.com/verte-zerg/easytalk/internal/config"
	"github.com/verte-zerg/easytalk/internal/dictionary"
	"github.com/verte-zerg/easytalk/internal/model"
	"github.com/verte-zerg/easytalk/internal/speech"
	"github.com/verte-zerg/easytalk/internal/stats"
	"github.com/verte-zerg/easytalk/internal/style"
)

const activityDays = 7

var (
	convertSpeak bool
	resetConfirm string
)

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [text...]",
		Short: "Rewrite text into easy Korean (reads stdin without arguments)",
		RunE:  runConvertCmd,
	}
	cmd.Flags().BoolVar(&convertSpeak, "speak", false, "read the result aloud")
	return cmd
}

func runConvertCmd(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 || text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}

	rt, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer rt.close()
	sess, err := rt.login(cmd.Context())
	if err != nil {
		return err
	}

	out, alert, err := rt.svc.Convert(cmd.Context(), sess, text)
	if err != nil {
		return errors.New(alert.Message)
	}
	w := cmd.OutOrStdout()
	if err := stats.RenderResult(w, out.Original, out.Result, stats.Options{Color: stats.UseColor(w)}); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if alert.Level == app.LevelWarning {
		printAlert(cmd, alert)
	}
	if convertSpeak {
		u := speech.NewUtterance(out.Result.ConvertedText)
		u.Rate = rt.settings.speechRate
		if err := rt.speaker.Speak(cmd.Context(), u); err != nil {
			return fmt.Errorf("failed to speak: %w", err)
		}
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(rt *runtime, sess *model.Session) error {
				w := cmd.OutOrStdout()
				return stats.RenderHistory(w, sess.History, stats.Options{Color: stats.UseColor(w)})
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every stored conversion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(rt *runtime, sess *model.Session) error {
				alert, err := rt.svc.ClearHistory(cmd.Context(), sess)
				return report(cmd, alert, err)
			})
		},
	})
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show usage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(rt *runtime, sess *model.Session) error {
				w := cmd.OutOrStdout()
				if err := stats.RenderUsage(w, sess.Stats, stats.Options{Color: stats.UseColor(w)}); err != nil {
					return err
				}
				return stats.RenderActivity(w, sess.History, time.Now(), activityDays)
			})
		},
	}
}

func newStyleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "style [polite|casual]",
		Short: "Show or change the speech style",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(rt *runtime, sess *model.Session) error {
				if len(args) == 0 {
					_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", sess.Style, style.Name(sess.Style))
					return err
				}
				st, err := model.ParseStyle(args[0])
				if err != nil {
					return err
				}
				alert, err := rt.svc.ChangeStyle(cmd.Context(), sess, st)
				return report(cmd, alert, err)
			})
		},
	}
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete stats, history and the stored style",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(rt *runtime, sess *model.Session) error {
				confirmation := resetConfirm
				if !cmd.Flags().Changed("confirm") {
					prompt := fmt.Sprintf("정말로 모든 데이터를 삭제하시겠습니까? \"%s\"를 입력하세요: ", app.ResetConfirmation)
					line, err := promptLine(cmd, prompt)
					if err != nil {
						return err
					}
					confirmation = line
				}
				alert, err := rt.svc.ResetAll(cmd.Context(), sess, confirmation)
				if errors.Is(err, app.ErrResetCancelled) {
					printAlert(cmd, alert)
					return nil
				}
				return report(cmd, alert, err)
			})
		},
	}
	cmd.Flags().StringVar(&resetConfirm, "confirm", "", "confirmation word, skips the prompt")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON backup of stats and history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(rt *runtime, sess *model.Session) error {
				path, alert, err := rt.svc.Export(sess)
				if err := report(cmd, alert, err); err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&exportDir, "dir", ".", "output directory")
	return cmd
}

func newDictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dict [word]",
		Short: "Look up a word in the built-in dictionary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, word := range dictionary.Words() {
					if _, err := fmt.Fprintln(w, word); err != nil {
						return fmt.Errorf("failed to write output: %w", err)
					}
				}
				return nil
			}
			entry, err := dictionary.Lookup(args[0])
			if err != nil {
				return fmt.Errorf("%q: %w", args[0], err)
			}
			return stats.RenderEntry(w, entry, stats.Options{Color: stats.UseColor(w)})
		},
	}
}

func newProposeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "propose <word> <meaning> <example> <easy-form>",
		Short: "Request a new dictionary word",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(rt *runtime, sess *model.Session) error {
				alert, err := rt.svc.ProposeWord(sess, args[0], args[1], args[2], args[3])
				return report(cmd, alert, err)
			})
		},
	}
}

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the Gemini API key",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key>",
		Short: "Test and store an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(rt *runtime, _ *model.Session) error {
				alert, err := rt.svc.SetAPIKey(cmd.Context(), strings.TrimSpace(args[0]))
				return report(cmd, alert, err)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Forget the stored key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(rt *runtime, _ *model.Session) error {
				alert, err := rt.svc.ResetAPIKey(cmd.Context())
				return report(cmd, alert, err)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the active key, masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(rt *runtime, _ *model.Session) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), rt.svc.MaskedAPIKey())
				return err
			})
		},
	})
	return cmd
}

func newDebugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debug",
		Short: "Print diagnostics for the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(rt *runtime, sess *model.Session) error {
				d, alert, err := rt.svc.Debug(cmd.Context(), sess)
				if err != nil {
					return report(cmd, alert, err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(),
					"user: %s\nstyle: %s (%s)\nstored style: %s\napi key: %s\nhistory: %d\nstate: %s\nstats: %d total, %d auto, %d detected today, %.0f%% accuracy\n",
					d.User, d.Style, d.StyleName, d.StoredStyle, d.APIKey, d.History, d.State,
					d.Stats.TotalConversions, d.Stats.AutoConverted, d.Stats.TodayDetected, d.Stats.Accuracy)
				return err
			})
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := rootConfigPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.Template), 0o600); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// withSession runs fn with a logged-in session for one-shot commands.
func withSession(cmd *cobra.Command, fn func(rt *runtime, sess *model.Session) error) error {
	rt, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer rt.close()
	sess, err := rt.login(cmd.Context())
	if err != nil {
		return err
	}
	return fn(rt, sess)
}

// report prints the alert and turns a failed operation into an error whose
// text is the alert.
func report(cmd *cobra.Command, alert app.Alert, err error) error {
	if err != nil {
		if alert.Message == "" {
			return err
		}
		return errors.New(alert.Message)
	}
	printAlert(cmd, alert)
	return nil
}

func printAlert(cmd *cobra.Command, alert app.Alert) {
	if alert.Message == "" {
		return
	}
	if _, err := fmt.Fprintln(cmd.ErrOrStderr(), alert.Message); err != nil {
		// Best-effort notice on stderr.
		_ = err
	}
}

func promptLine(cmd *cobra.Command, prompt string) (string, error) {
	if _, err := fmt.Fprint(cmd.ErrOrStderr(), prompt); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	return strings.TrimSpace(line), nil
}
