package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AryaBuddha/iclicker-evade/internal/auth"
	"github.com/AryaBuddha/iclicker-evade/internal/browser"
	"github.com/AryaBuddha/iclicker-evade/internal/config"
	"github.com/AryaBuddha/iclicker-evade/internal/logging"
	"github.com/AryaBuddha/iclicker-evade/internal/session"
	"github.com/AryaBuddha/iclicker-evade/internal/ui"
)

// registerSessionFlags adds the flags shared by every command that opens a
// browser session.
func registerSessionFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-headless", false, "Run Chrome in visible mode (default: headless)")
	cmd.Flags().String("class", "", "Name of the class to select (overrides config and environment)")
	cmd.Flags().Int("polling-interval", 5, "Seconds between polling checks (1-300)")
	cmd.Flags().String("snapshot-dir", "questions", "Directory for question screenshots and the debug log")
}

// loadConfig binds the command's flags into viper and loads the validated
// configuration. Configuration errors are fatal before any page interaction.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	bindings := map[string]string{
		"class":              "class",
		"polling_interval":   "polling-interval",
		"snapshot_dir":       "snapshot-dir",
		"debug":              "debug",
		"notification_email": "notif-email",
		"suggest":            "suggest",
		"suggest_model":      "suggest-model",
	}
	for key, flag := range bindings {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			f = cmd.Root().PersistentFlags().Lookup(flag)
		}
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind flag --%s: %w", flag, err)
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if noHeadless, _ := cmd.Flags().GetBool("no-headless"); noHeadless {
		cfg.Headless = false
	}
	return cfg, nil
}

// liveSession is an authenticated browser on the course selection page.
type liveSession struct {
	cfg      *config.Config
	driver   browser.Driver
	scanner  *session.Scanner
	prompter *ui.Prompter
	log      *logging.Logger
}

// openSession launches the browser, logs in, and leaves the portal on the
// course selection page.
func openSession(cfg *config.Config) (*liveSession, error) {
	log, err := logging.New(cfg.SnapshotDir, cfg.Debug)
	if err != nil {
		return nil, err
	}

	prompter := ui.NewPrompter(nil, nil)

	driver, err := browser.NewChrome(browser.Options{Headless: cfg.Headless})
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	authn := auth.NewPurdue(driver, prompter, log)
	if _, err := authn.Login(cfg.Username, cfg.Password); err != nil {
		driver.Close()
		log.Close()
		return nil, err
	}

	return &liveSession{
		cfg:      cfg,
		driver:   driver,
		scanner:  session.NewScanner(driver, log),
		prompter: prompter,
		log:      log,
	}, nil
}

func (s *liveSession) interval() time.Duration {
	return time.Duration(s.cfg.PollingInterval) * time.Second
}

func (s *liveSession) close() {
	s.driver.Close()
	s.log.Close()
}
