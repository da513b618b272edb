package main

import (
	"fmt"
	"os"

	"github.com/crucial707/meddevice/cmd/cli/auth"
	"github.com/crucial707/meddevice/cmd/cli/devices"
	"github.com/crucial707/meddevice/cmd/cli/root"
	"github.com/crucial707/meddevice/cmd/cli/schedules"
)

func main() {
	rootCmd := root.GetRoot()
	auth.InitAuth(rootCmd)
	devices.InitDevices(rootCmd)
	schedules.InitSchedules(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
