package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AryaBuddha/iclicker-evade/internal/monitor"
	"github.com/AryaBuddha/iclicker-evade/internal/notify"
	"github.com/AryaBuddha/iclicker-evade/internal/session"
	"github.com/AryaBuddha/iclicker-evade/internal/suggest"
	"github.com/AryaBuddha/iclicker-evade/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Log in, join a class session, and monitor for questions",
	Long:  "Runs the full workflow: portal login, class selection, waiting for the instructor to start the session, joining it, and monitoring for questions until interrupted.",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	registerSessionFlags(runCmd)
	runCmd.Flags().String("notif-email", "", "Email address to send question screenshots to (requires Gmail credentials in the environment)")
	runCmd.Flags().Bool("suggest", false, "Enable AI answer suggestions (requires OPENAI_API_KEY)")
	runCmd.Flags().String("suggest-model", "gpt-4o", "Vision model for answer suggestions")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sess, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer sess.close()

	// Optional collaborators: a failed startup test degrades the feature
	// to a warning, it never stops the run.
	var notifier monitor.Notifier
	if cfg.NotificationsEnabled() {
		email := notify.NewEmailNotifier(cfg.GmailSender, cfg.GmailAppPassword, cfg.NotificationEmail, sess.log)
		if err := email.TestConnection(); err != nil {
			sess.log.Warn("email connection test failed", "error", err)
			fmt.Fprintln(sess.prompter.Out(), "⚠️  Email service test failed; alerts may not deliver.")
		}
		notifier = email
	}

	var suggester monitor.Suggester
	if cfg.SuggestEnabled {
		client := suggest.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.SuggestModel, sess.log)
		if err := client.Ping(); err != nil {
			sess.log.Warn("suggestion service test failed", "error", err)
			fmt.Fprintln(sess.prompter.Out(), "⚠️  Suggestion service test failed; suggestions may be unavailable.")
		}
		suggester = client
	}

	name, err := selectClass(sess, cmd.Flags().Changed("class"))
	if err != nil {
		return err
	}
	fmt.Fprintf(sess.prompter.Out(), "✅ Selected class: %s\n", name)

	if err := sess.scanner.Open(name); err != nil {
		return err
	}

	waiter := session.NewJoinWaiter(sess.driver, sess.interval(), ui.NewSpinner(), sess.log)
	if err := waiter.AwaitAndJoin(); err != nil {
		return err
	}
	fmt.Fprintln(sess.prompter.Out(), "✅ Joined the session. Starting question monitoring...")

	watcher := monitor.New(monitor.Options{
		Driver:      sess.driver,
		Interval:    sess.interval(),
		Suggester:   suggester,
		Notifier:    notifier,
		Prompter:    sess.prompter,
		Spinner:     ui.NewSpinner(),
		Logger:      sess.log,
		SnapshotDir: cfg.SnapshotDir,
	})

	err = watcher.Run()
	if errors.Is(err, ui.ErrAborted) {
		fmt.Fprintln(sess.prompter.Out(), "\n🛑 Monitoring stopped.")
		return nil
	}
	return err
}

// selectClass scans the course list and resolves which class to open,
// falling back to interactive selection.
func selectClass(sess *liveSession, fromFlag bool) (string, error) {
	entries, err := sess.scanner.Scan()
	if err != nil {
		return "", err
	}

	source := session.SourceInteractive
	if sess.cfg.ClassName != "" {
		source = session.SourceConfig
		if fromFlag {
			source = session.SourceCLI
		}
	}

	selector := session.NewSelector(sess.prompter, sess.log)
	return selector.Select(session.Query{
		RequestedName: sess.cfg.ClassName,
		Source:        source,
	}, session.Names(entries))
}
