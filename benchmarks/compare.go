package benchmarks

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/leanrl/lean-rl-search/policies"
	"github.com/leanrl/lean-rl-search/prover"
	"github.com/leanrl/lean-rl-search/types"
	"github.com/leanrl/lean-rl-search/util"
	"github.com/spf13/cobra"
)

// Compare runs the policy comparison over a list of declarations, one
// experiment (and one prover process) per declaration and policy
func Compare(ctx context.Context, declsFile string, tactics []string, episodeTimeout, parallelism int) error {
	decls, err := util.ReadLines(declsFile)
	if err != nil {
		return fmt.Errorf("failed to read declarations from %s: %w", declsFile, err)
	}
	if len(decls) == 0 {
		return fmt.Errorf("no declarations in %s", declsFile)
	}

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

		Parallelism: parallelism,
	})
	c.AddAnalysis("ProofsFound", func() types.Analyzer { return prover.NewProofsFoundAnalyzer() }, prover.ProofsFoundPlotter(path.Join(saveFile, "plots")))
	c.AddAnalysis("ProofLength", func() types.Analyzer { return prover.NewProofLengthAnalyzer() }, prover.ProofLengthPlotter(path.Join(saveFile, "plots")))

	envs := make([]*prover.SearchEnvironment, 0)
	defer func() {
		for _, env := range envs {
			env.Close()
		}
	}()

	newPolicies := []struct {
		name string
		new  func() types.Policy
	}{
		{"Random", func() types.Policy { return types.NewRandomPolicy() }},
		{"SoftMax", func() types.Policy { return policies.NewSoftMaxPolicy(0.3, 0.7, 0.5) }},
		{"EpsilonGreedy", func() types.Policy { return policies.NewEpsilonGreedyPolicy(0.1, 0.99, 0.05) }},
	}

	for _, decl := range decls {
		for _, p := range newPolicies {
			env, err := prover.NewSearchEnvironment(&prover.SearchConfig{
				RootDir:    leanRoot,
				Decl:       decl,
				Tactics:    tactics,
				BinaryPath: leanBin,
				Timeout:    time.Duration(stepTimeout) * time.Second,
			})
			if err != nil {
				return fmt.Errorf("failed to start prover for %s: %w", decl, err)
			}
			envs = append(envs, env)
			c.AddExperiment(types.NewExperiment(decl+"-"+p.name, p.new(), env))
		}
	}

	c.Run(ctx)
	return nil
}

func CompareCommand() *cobra.Command {
	var declsFile string
	var tactics []string
	var episodeTimeout int
	var parallelism int

	cmd := &cobra.Command{
		Use: "compare",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Compare(context.Background(), declsFile, tactics, episodeTimeout, parallelism)
		},
	}
	cmd.PersistentFlags().StringVar(&declsFile, "decls", "decls.txt", "File with one declaration per line")
	cmd.PersistentFlags().StringSliceVar(&tactics, "tactics", []string{
		"intros",
		"intro m",
		"simp",
		"norm_num",
		"assumption",
		"refl",
	}, "Candidate tactic pool")
	cmd.PersistentFlags().IntVar(&episodeTimeout, "episode-timeout", 600, "Timeout in seconds for one episode")
	cmd.PersistentFlags().IntVar(&parallelism, "parallelism", 1, "Experiments running concurrently, each with its own prover process")
	return cmd
}
