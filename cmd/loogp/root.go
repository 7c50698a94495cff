package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "loogp",
	Short: "Separate pitched sources with a leave-one-out Gaussian process",
	Long: `loogp explains a signal as a sum of pitched sources, each a quasi-periodic
component gated by a slowly varying envelope, and fits the sparse variational
model window by window.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging in a human-readable format")
}

func Execute() error {
	return rootCmd.Execute()
}

// newLogger tags every record with a fresh run id.
func newLogger() (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("run", uuid.NewString())), nil
}
