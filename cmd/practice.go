package cmd

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/examprep/internal/app"
	"github.com/abhisek/examprep/internal/criteria"
	"github.com/abhisek/examprep/internal/exam"
	"github.com/abhisek/examprep/internal/identity"
	"github.com/abhisek/examprep/internal/logging"
	"github.com/abhisek/examprep/internal/screens/practice"
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Take a timed practice test",
	Example: "  examprep practice --topics kinematics:5,optics:3 --minutes 20\n" +
		"  examprep practice --topics algebra:10 --difficulty hard --test-id mock-1",
	Args: cobra.NoArgs,
	RunE: runPractice,
}

func init() {
	addPracticeFlags(practiceCmd)
}

func addPracticeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("topics", "", "Questions per topic, as topicId:count pairs separated by commas")
	f.String("difficulty", "", "Only draw questions of this difficulty level")
	f.String("access", "", "Only draw questions of this access tier (free or paid)")
	f.String("test-id", "", "Record the attempt under this test (default derived from the selection)")
	f.Int("minutes", 0, "Time limit in minutes (default 30)")
	f.String("log-file", "", "Write logs here while the test runs (default examprep.log in the cache dir)")
}

// practiceCriteria turns the selection flags into criteria, the same way
// the API reads its query string.
func practiceCriteria(cmd *cobra.Command) (criteria.Set, []criteria.Issue) {
	v := url.Values{}
	set := func(flag, param string) {
		if s, _ := cmd.Flags().GetString(flag); strings.TrimSpace(s) != "" {
			v.Set(param, s)
		}
	}
	set("topics", criteria.ParamTopics)
	set("difficulty", criteria.ParamDifficulty)
	set("access", criteria.ParamAccess)
	return criteria.Parse(v)
}

func runPractice(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sel, issues := practiceCriteria(cmd)
	if sel.Empty() {
		for _, is := range issues {
			fmt.Fprintln(os.Stderr, "skipped:", is.String())
		}
		return fmt.Errorf("choose at least one topic, e.g. --topics kinematics:5")
	}
	minutes, _ := cmd.Flags().GetInt("minutes")
	if minutes < 0 {
		return fmt.Errorf("--minutes must be positive")
	}
	testID, _ := cmd.Flags().GetString("test-id")

	// The terminal belongs to the UI, so logs go to a file.
	logPath, _ := cmd.Flags().GetString("log-file")
	if logPath == "" {
		logPath = defaultLogPath()
	}
	logger, closer, err := logging.File(logPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer closer.Close()

	svc, err := open(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	warnings := make([]string, 0, len(issues))
	for _, is := range issues {
		warnings = append(warnings, "Skipped "+is.String())
	}

	opts := []practice.Option{
		practice.WithWarnings(warnings),
		practice.WithHistory(svc.analytics),
	}
	if svc.explainer != nil {
		opts = append(opts, practice.WithExplainer(svc.explainer))
	}

	student := identity.Local(cfg.StudentID, cfg.StudentName)
	scr := practice.New(svc.exam, student, exam.Config{
		TestID:   testID,
		Criteria: sel,
		Duration: time.Duration(minutes) * time.Minute,
	}, opts...)

	_, err = app.Run(scr)
	if a := scr.Attempt(); a != nil && a.Abandon() {
		fmt.Fprintln(os.Stderr, "Test closed without submitting; nothing was recorded.")
	}
	return err
}

func defaultLogPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "examprep.log")
	}
	dir = filepath.Join(dir, "examprep")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return filepath.Join(os.TempDir(), "examprep.log")
	}
	return filepath.Join(dir, "examprep.log")
}
