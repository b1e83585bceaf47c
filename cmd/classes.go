package cmd

import (
	"github.com/spf13/cobra"

	"github.com/AryaBuddha/iclicker-evade/internal/output"
)

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "Log in and list the available classes",
	Long:  "Logs into the portal, scans the course selection page, and prints the available class names.",
	RunE:  runClasses,
}

func init() {
	rootCmd.AddCommand(classesCmd)
	registerSessionFlags(classesCmd)
}

// classesResult is the output of the classes command.
type classesResult struct {
	OK      bool     `yaml:"ok"      json:"ok"`
	Action  string   `yaml:"action"  json:"action"`
	Classes []string `yaml:"classes" json:"classes"`
	Total   int      `yaml:"total"   json:"total"`
}

func runClasses(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sess, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer sess.close()

	entries, err := sess.scanner.Scan()
	if err != nil {
		return err
	}

	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return output.Print(classesResult{
		OK:      true,
		Action:  "classes",
		Classes: names,
		Total:   len(names),
	})
}
