package benchmarks

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/leanrl/lean-rl-search/policies"
	"github.com/leanrl/lean-rl-search/prover"
	"github.com/leanrl/lean-rl-search/types"
	"github.com/spf13/cobra"
)

// Prove compares the baseline policies on a single declaration
func Prove(ctx context.Context, decl string, tactics []string, episodeTimeout int) error {
	c := types.NewComparison(&types.ComparisonConfig{
		Runs:       runs,
		Episodes:   episodes,
		Horizon:    horizon,
		RecordPath: saveFile,
		Timeout:    time.Duration(episodeTimeout) * time.Second,
		// record flags
		RecordTraces:  true,
		RecordPolicy:  true,
		RecordReports: true,
	})
	c.AddAnalysis("ProofsFound", func() types.Analyzer { return prover.NewProofsFoundAnalyzer() }, prover.ProofsFoundPlotter(path.Join(saveFile, "plots")))
	c.AddAnalysis("ProofLength", func() types.Analyzer { return prover.NewProofLengthAnalyzer() }, prover.ProofLengthPlotter(path.Join(saveFile, "plots")))
	c.AddAnalysis("Coverage", func() types.Analyzer { return types.NewCoverageAnalyzer() }, types.CoveragePlotter(path.Join(saveFile, "plots")))

	experiments := []struct {
		name   string
		policy types.Policy
	}{
		{"Random", types.NewRandomPolicy()},
		{"SoftMax", policies.NewSoftMaxPolicy(0.3, 0.7, 0.5)},
		{"EpsilonGreedy", policies.NewEpsilonGreedyPolicy(0.1, 0.99, 0.05)},
	}

	envs := make([]*prover.SearchEnvironment, 0, len(experiments))
	defer func() {
		for _, env := range envs {
			env.Close()
		}
	}()

	for _, e := range experiments {
		env, err := prover.NewSearchEnvironment(&prover.SearchConfig{
			RootDir:    leanRoot,
			Decl:       decl,
			Tactics:    tactics,
			BinaryPath: leanBin,
			Timeout:    time.Duration(stepTimeout) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("failed to start prover for %s: %w", e.name, err)
		}
		envs = append(envs, env)
		c.AddExperiment(types.NewExperiment(e.name, e.policy, env))
	}

	c.Run(ctx)
	return nil
}

func ProveCommand() *cobra.Command {
	var decl string
	var tactics []string
	var episodeTimeout int

	cmd := &cobra.Command{
		Use: "prove",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Prove(context.Background(), decl, tactics, episodeTimeout)
		},
	}
	cmd.PersistentFlags().StringVar(&decl, "decl", "int.prime.dvd_mul", "Declaration to prove")
	cmd.PersistentFlags().StringSliceVar(&tactics, "tactics", []string{
		"intros",
		"intro m",
		"simp",
		"norm_num",
		"assumption",
		"refl",
	}, "Candidate tactic pool")
	cmd.PersistentFlags().IntVar(&episodeTimeout, "episode-timeout", 600, "Timeout in seconds for one episode")
	return cmd
}
