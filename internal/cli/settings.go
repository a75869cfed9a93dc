package cli

import (
	"github.com/spf13/cobra"

	"pocketpages/internal/service"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change app settings",
	Args:  cobra.NoArgs,
	RunE: withRuntime(func(cmd *cobra.Command, _ []string, r *runtime) error {
		svc := r.settingsService()
		for _, key := range service.KnownSettings {
			v, err := svc.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			cmd.Printf("%s = %s\n", key, v)
		}
		return nil
	}),
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, r *runtime) error {
		v, err := r.settingsService().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		cmd.Println(v)
		return nil
	}),
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Change one setting.

Available keys:
  theme   light, dark or system (default system)`,
	Args: cobra.ExactArgs(2),
	RunE: withRuntime(func(cmd *cobra.Command, args []string, r *runtime) error {
		if err := r.settingsService().Set(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		cmd.Printf("%s set to %s\n", args[0], args[1])
		return nil
	}),
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
