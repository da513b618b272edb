package devices

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/crucial707/meddevice/cmd/cli/client"
	"github.com/crucial707/meddevice/cmd/cli/output"
	"github.com/crucial707/meddevice/internal/models"
)

// ==========================
// Init Devices
// ==========================
func InitDevices(rootCmd *cobra.Command) {
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Inspect devices",
	}

	devicesCmd.AddCommand(
		listDevicesCmd(),
		dueDevicesCmd(),
	)

	rootCmd.AddCommand(devicesCmd)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("02/01/2006 15:04")
}

// ==========================
// LIST
// ==========================
func listDevicesCmd() *cobra.Command {
	var jsonOut bool
	var departmentID, categoryID int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if departmentID > 0 {
				q.Set("department_id", strconv.Itoa(departmentID))
			}
			if categoryID > 0 {
				q.Set("category_id", strconv.Itoa(categoryID))
			}
			path := "/devices"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var devices []models.Device
			if err := client.Call("GET", path, nil, &devices, true); err != nil {
				return err
			}
			if jsonOut {
				return output.PrintJSON(devices)
			}

			rows := make([][]interface{}, 0, len(devices))
			for _, d := range devices {
				rows = append(rows, []interface{}{d.ID, d.Name, d.DepartmentName, d.Location, d.Status,
					d.InspectionFrequency, formatTime(d.LastInspectionAt)})
			}
			output.RenderTable([]string{"ID", "Name", "Department", "Location", "Status", "Frequency", "Last inspection"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output raw JSON")
	cmd.Flags().IntVar(&departmentID, "department", 0, "Filter by department id")
	cmd.Flags().IntVar(&categoryID, "category", 0, "Filter by category id")
	return cmd
}

// ==========================
// DUE
// ==========================
func dueDevicesCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List active devices due for inspection today",
		RunE: func(cmd *cobra.Command, args []string) error {
			var due []struct {
				models.Device
				NextDue *time.Time `json:"next_due"`
			}
			if err := client.Call("GET", "/devices/due", nil, &due, true); err != nil {
				return err
			}
			if jsonOut {
				return output.PrintJSON(due)
			}
			if len(due) == 0 {
				fmt.Println("All devices are inspected. Nothing is due.")
				return nil
			}

			rows := make([][]interface{}, 0, len(due))
			for _, d := range due {
				rows = append(rows, []interface{}{d.ID, d.Name, d.DepartmentName, d.InspectionFrequency,
					formatTime(d.LastInspectionAt), formatTime(d.NextDue)})
			}
			output.RenderTable([]string{"ID", "Name", "Department", "Frequency", "Last inspection", "Next due"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output raw JSON")
	return cmd
}
