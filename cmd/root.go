package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/muzzleid/muzzle-go/cmd/export"
	"github.com/muzzleid/muzzle-go/cmd/reference"
	"github.com/muzzleid/muzzle-go/cmd/serve"
	"github.com/muzzleid/muzzle-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "muzzle-go",
		Short: "MuzzleID CLI",
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	subcommands := []*cobra.Command{
		serve.Command(settings),
		export.Command(settings),
		reference.Command(settings),
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Sync the settings struct with viper's values so command-line
		// arguments take precedence over the config file.
		conf.SyncViper(settings)
		return settings.Validate()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().Float64VarP(&settings.Classifier.DisplayThreshold, "threshold", "t", viper.GetFloat64("classifier.displaythreshold"), "Display threshold for classification results, value between 0.0 and 1.0")
	rootCmd.PersistentFlags().StringVar(&settings.Reference.Path, "reference", viper.GetString("reference.path"), "Path to the reference table CSV file")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
