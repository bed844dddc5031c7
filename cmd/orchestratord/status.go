package orchestratord

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print persisted job state as JSON without starting the scheduler",
	Long: `status connects to the database, lists the persisted jobs the
scheduler store currently holds, and reports whether each still has a
matching active task, without starting cron dispatch or the executor.`,
	RunE: runStatus,
}

type statusOutput struct {
	PersistedJobs int               `json:"persisted_jobs"`
	Jobs          []statusJobOutput `json:"jobs"`
}

type statusJobOutput struct {
	TaskID     int64  `json:"task_id"`
	CronExpr   string `json:"cron_expr"`
	TaskExists bool   `json:"task_exists"`
	TaskActive bool   `json:"task_active"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	d, err := newDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	views, err := d.sched.PersistedJobs(cmd.Context())
	if err != nil {
		return fmt.Errorf("list persisted jobs: %w", err)
	}

	out := statusOutput{PersistedJobs: len(views), Jobs: make([]statusJobOutput, 0, len(views))}
	for _, v := range views {
		out.Jobs = append(out.Jobs, statusJobOutput{
			TaskID:     v.TaskID,
			CronExpr:   v.CronExpr,
			TaskExists: v.TaskExists,
			TaskActive: v.TaskActive,
		})
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}
