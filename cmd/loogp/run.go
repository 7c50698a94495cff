package main

import (
	"fmt"
	"io"
	"math"

	"github.com/kuonanhong/gpitch/base"
	"github.com/kuonanhong/gpitch/config"
	"github.com/kuonanhong/gpitch/kern"
	"github.com/kuonanhong/gpitch/synth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a synthetic separation experiment",
	Long: `Generate a synthetic mixture, cut it into windows and, for every window,
reset the model, fit it and report how well each source is recovered.

Without --config the built-in defaults are used.`,
	RunE: runExperiment,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML experiment file")
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(configPath)
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	data, err := synth.Generate(cfg.SynthSpec())
	if err != nil {
		return fmt.Errorf("generating data: %w", err)
	}
	corr, err := separate(cfg, data, logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	for i, c := range corr {
		logger.Info("source recovered",
			zap.Int("source", i+1),
			zap.Float64("mean_correlation", c))
	}
	return nil
}

// separate fits every window in turn with one model and returns the mean
// correlation between each predicted and true source.
func separate(cfg *config.Config, data *synth.Data, logger *zap.Logger, out io.Writer) ([]float64, error) {
	kf, kg, err := buildKernels(cfg, data, logger)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options(logger)
	if err != nil {
		return nil, err
	}
	fitter, err := cfg.Fitter(logger)
	if err != nil {
		return nil, err
	}

	var model *base.LooGP
	sums := make([]float64, len(kf))
	counts := make([]int, len(kf))
	for w, win := range synth.Windows(len(data.X), cfg.Window.Size) {
		x := data.X[win.Start:win.End]
		y := data.Y[win.Start:win.End]
		z := synth.Decimate(x, cfg.Model.InducingEvery)
		if model == nil {
			model, err = base.New(x, y, kf, kg, z, opts)
		} else {
			err = model.Reset(x, y, z)
		}
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", w, err)
		}
		trace, err := fitter.Fit(model)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", w, err)
		}
		fmt.Fprintf(out, "window %d [%d, %d) bound %.4f", w, win.Start, win.End, trace.Last())
		for i := range kf {
			pred, err := model.PredictSource(i+1, x)
			if err != nil {
				return nil, fmt.Errorf("window %d: %w", w, err)
			}
			c := synth.Correlation(pred, data.Sources[i][win.Start:win.End])
			fmt.Fprintf(out, " corr%d %.3f", i+1, c)
			if !math.IsNaN(c) {
				sums[i] += c
				counts[i]++
			}
		}
		fmt.Fprintln(out)
	}
	for i := range sums {
		if counts[i] == 0 {
			sums[i] = math.NaN()
			continue
		}
		sums[i] /= float64(counts[i])
	}
	return sums, nil
}

// buildKernels places the component partials on the configured harmonics or,
// when asked to, on the spectral peaks of each isolated source.
func buildKernels(cfg *config.Config, data *synth.Data, logger *zap.Logger) (kf, kg []kern.Kernel, err error) {
	comp := cfg.Kernels.Component
	if !comp.EstimatePartials {
		return cfg.BuildKernels()
	}
	energies := make([][]float64, len(data.Components))
	freqs := make([][]float64, len(data.Components))
	for i, f := range data.Components {
		freqs[i], energies[i], err = synth.EstimatePartials(f, cfg.Data.SampleRate, comp.MaxPartials)
		if err != nil {
			return nil, nil, fmt.Errorf("source %d: %w", i+1, err)
		}
		logger.Info("partials estimated",
			zap.Int("source", i+1),
			zap.Float64s("frequencies", freqs[i]),
			zap.Float64s("energies", energies[i]))
	}
	return cfg.BuildKernelsWith(energies, freqs)
}
