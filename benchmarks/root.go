package benchmarks

import "github.com/spf13/cobra"

var (
	episodes    int
	horizon     int
	saveFile    string
	runs        int
	leanRoot    string
	leanBin     string
	stepTimeout int
)

func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{Use: "lean-rl-search"}
	rootCommand.PersistentFlags().IntVarP(&episodes, "episodes", "e", 1000, "Number of episodes to run")
	rootCommand.PersistentFlags().IntVar(&horizon, "horizon", 50, "Horizon of each episode")
	rootCommand.PersistentFlags().StringVarP(&saveFile, "save", "s", "results", "Save the result data in the specified folder")
	rootCommand.PersistentFlags().IntVar(&runs, "runs", 1, "Number of experiment runs")
	rootCommand.PersistentFlags().StringVar(&leanRoot, "lean-root", "lean-gym", "Path to the lean-gym checkout")
	rootCommand.PersistentFlags().StringVar(&leanBin, "lean-bin", "lean", "Path to the lean binary")
	rootCommand.PersistentFlags().IntVar(&stepTimeout, "step-timeout", 300, "Timeout in seconds for a single prover reply")
	// adding the subcommands here
	rootCommand.AddCommand(ProveCommand())
	rootCommand.AddCommand(CompareCommand())
	rootCommand.AddCommand(ServeCommand())
	return rootCommand
}
