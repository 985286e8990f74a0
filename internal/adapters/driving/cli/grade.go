package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	gradeRisks bool
	gradeJSON  bool
)

var gradeCmd = &cobra.Command{
	Use:   "grade [question]",
	Short: "Compute the score needed to reach a target grade",
	Long: `Parses a question such as "nilai saya 60 bobot 40% target 75" and prints
the score the remaining assessments need.

With --risks, lists the courses on the user's uploaded transcript that are
at risk, with the retake score each needs for a B.`,
	Example: `  arah grade "nilai uts 65 bobot 40% target 70"
  arah grade --risks --user 42`,
	RunE: runGrade,
}

func init() {
	gradeCmd.Flags().BoolVar(&gradeRisks, "risks", false, "list at-risk courses from the user's transcript")
	gradeCmd.Flags().BoolVar(&gradeJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(gradeCmd)
}

func runGrade(cmd *cobra.Command, args []string) error {
	if gradeService == nil {
		return errors.New("grade service not configured")
	}
	if gradeRisks {
		return runGradeRisks(cmd)
	}
	if len(args) == 0 {
		return errors.New("requires a question, or --risks")
	}

	q, plan, err := gradeService.Rescue(strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("failed to parse question: %w", err)
	}

	if gradeJSON {
		return printJSON(cmd, map[string]any{"query": q, "plan": plan})
	}

	cmd.Printf("Nilai saat ini : %.2f (bobot %.0f%%)\n", q.Current, q.Weight)
	cmd.Printf("Target         : %.2f\n", q.Target)
	cmd.Printf("Sudah tercapai : %.2f poin\n", plan.AchievedSoFar)
	if plan.Required == nil {
		cmd.Printf("Hasil          : %s\n", plan.Reason)
		return nil
	}
	cmd.Printf("Butuh          : %.2f pada sisa bobot %.0f%%\n", *plan.Required, q.Remaining())
	if !plan.Possible {
		cmd.Println("Status         : tidak mungkin tercapai")
	} else {
		cmd.Println("Status         : masih mungkin")
	}
	return nil
}

func runGradeRisks(cmd *cobra.Command) error {
	user, err := requireUser()
	if err != nil {
		return err
	}
	risks, err := gradeService.UserRisks(cmd.Context(), user)
	if err != nil {
		return fmt.Errorf("failed to load transcript: %w", err)
	}

	if gradeJSON {
		return printJSON(cmd, risks)
	}
	if len(risks) == 0 {
		cmd.Println("Tidak ada mata kuliah berisiko.")
		return nil
	}

	cmd.Printf("Mata kuliah berisiko (%d):\n\n", len(risks))
	for _, r := range risks {
		need := "-"
		if r.Required != nil {
			need = fmt.Sprintf("%.2f", *r.Required)
		}
		cmd.Printf("  %-32s %-3s butuh %s untuk B\n", r.Course, r.Grade, need)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
