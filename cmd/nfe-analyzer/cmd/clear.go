package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every invoice from the persisted dataset",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	if err := requireDatabase(); err != nil {
		return err
	}

	st, closeStore, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	n := st.Len()
	if err := st.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("Removed %d invoices\n", n)
	return nil
}
