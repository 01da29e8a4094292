package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/jchen-md/ringmd/internal/config"
	"github.com/jchen-md/ringmd/internal/sim"
	"github.com/jchen-md/ringmd/internal/storage"
	"github.com/jchen-md/ringmd/internal/tui"
)

var (
	dataDir    string
	configFile string
	live       bool
	noSave     bool

	nbeads   int
	steps    int
	ensemble string
	seed     uint64

	plotVar string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ringmd",
		Short: "ring-polymer molecular dynamics propagator",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ringmd", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a trajectory",
		RunE:  runTrajectory,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().BoolVar(&live, "live", false, "live diagnostics dashboard")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not write run output")
	runCmd.Flags().IntVar(&nbeads, "nbeads", 0, "override ring size")
	runCmd.Flags().IntVar(&steps, "steps", 0, "override step count")
	runCmd.Flags().StringVar(&ensemble, "ensemble", "", "override ensemble")
	runCmd.Flags().Uint64Var(&seed, "seed", 0, "override random seed")

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "ringmd.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.Save(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved diagnostic",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotVar, "var", "tote", "diagnostic to plot")

	rootCmd.AddCommand(runCmd, initCmd, listCmd, plotCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, err
		}
	}
	if nbeads > 0 {
		cfg.NBeads = nbeads
	}
	if steps > 0 {
		cfg.Steps = steps
	}
	if ensemble != "" {
		cfg.Ensemble = ensemble
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runTrajectory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var res *sim.Result
	if live {
		res, err = tui.RunLive(cfg)
	} else {
		res, err = sim.Run(cfg, nil)
	}
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}

	last := res.Series[len(res.Series)-1]
	fmt.Printf("completed %d steps, P=%d, %s\n", res.Steps, cfg.NBeads, cfg.Ensemble)
	for i, label := range sim.Labels {
		fmt.Printf("  %-10s %14.6g\n", label, last[i])
	}

	if noSave {
		return nil
	}
	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	runID, err := store.Save(cfg, res)
	if err != nil {
		return err
	}
	fmt.Printf("saved %s\n", runID)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tENSEMBLE\tP\tSTEPS\tTEMP\tWHEN")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.1f\t%s\n",
			r.ID, r.Ensemble, r.NBeads, r.Steps, r.Temp,
			r.Timestamp.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	cols, err := store.LoadSeries(args[0])
	if err != nil {
		return err
	}
	data, ok := cols[plotVar]
	if !ok || len(data) < 2 {
		return fmt.Errorf("run %s has no series %q", args[0], plotVar)
	}

	graph := asciigraph.Plot(data,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(plotVar),
	)
	fmt.Println(graph)
	return nil
}
