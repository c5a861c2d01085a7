// Package devices contains the capture device listing command.
package devices

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/magpi/listener/internal/myaudio"
)

// Command creates the command that lists available capture devices.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := myaudio.ListCaptureDevices()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("no capture devices found")
				return nil
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}
