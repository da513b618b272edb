package schedules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crucial707/meddevice/cmd/cli/client"
	"github.com/crucial707/meddevice/cmd/cli/output"
	"github.com/crucial707/meddevice/internal/models"
)

// InitSchedules registers the schedules command group.
func InitSchedules(rootCmd *cobra.Command) {
	schedulesCmd := &cobra.Command{
		Use:   "schedules",
		Short: "Manage scheduled chat reports",
		Long: `List scheduled reports and trigger a test send.
Requires an admin account.`,
	}

	schedulesCmd.AddCommand(listSchedulesCmd(), testScheduleCmd())
	rootCmd.AddCommand(schedulesCmd)
}

// describeCadence renders "weekly 08:00 (day 1)" style labels.
func describeCadence(s models.ScheduledReport) string {
	label := s.ScheduleType + " " + s.ScheduleTime
	if s.ScheduleDay != nil {
		label += fmt.Sprintf(" (day %d)", *s.ScheduleDay)
	}
	return label
}

func listSchedulesCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scheduled reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			var list []models.ScheduledReport
			if err := client.Call("GET", "/schedules", nil, &list, true); err != nil {
				return err
			}
			if jsonOut {
				return output.PrintJSON(list)
			}

			rows := make([][]interface{}, 0, len(list))
			for _, s := range list {
				lastRun := "-"
				if s.LastRun != nil {
					lastRun = s.LastRun.Format("02/01/2006 15:04")
				}
				active := "no"
				if s.Active {
					active = "yes"
				}
				rows = append(rows, []interface{}{s.ID, s.Name, s.ReportType, describeCadence(s),
					len(s.ChatIDs), active, lastRun})
			}
			output.RenderTable([]string{"ID", "Name", "Report", "Cadence", "Recipients", "Active", "Last run"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output raw JSON")
	return cmd
}

func testScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test [id]",
		Short: "Send a schedule's report now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid schedule id %q", args[0])
			}

			var result struct {
				Success    bool     `json:"success"`
				Report     string   `json:"report"`
				Recipients int      `json:"recipients"`
				SentTo     []string `json:"sent_to"`
				Failed     []string `json:"failed"`
			}
			if err := client.Call("POST", "/schedules/"+strconv.Itoa(id)+"/test", nil, &result, true); err != nil {
				return err
			}

			fmt.Println(result.Report)
			fmt.Println()
			fmt.Printf("Sent to %d of %d recipients.\n", len(result.SentTo), result.Recipients)
			if len(result.Failed) > 0 {
				fmt.Printf("Failed: %s\n", strings.Join(result.Failed, ", "))
			}
			if !result.Success {
				return fmt.Errorf("test send incomplete")
			}
			return nil
		},
	}
}
