package prover

import (
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/leanrl/lean-rl-search/types"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ProofsFoundAnalyzer accumulates the number of completed proofs per episode
type ProofsFoundAnalyzer struct {
	proofs     int
	perEpisode []int
}

var _ types.Analyzer = &ProofsFoundAnalyzer{}

func NewProofsFoundAnalyzer() *ProofsFoundAnalyzer {
	return &ProofsFoundAnalyzer{
		perEpisode: make([]int, 0),
	}
}

func (p *ProofsFoundAnalyzer) Analyze(run, episode, timesteps int, name string, trace *types.Trace) {
	if trace.Reward() > 0 {
		p.proofs += 1
	}
	p.perEpisode = append(p.perEpisode, p.proofs)
}

func (p *ProofsFoundAnalyzer) DataSet() types.DataSet {
	return p.perEpisode
}

func (p *ProofsFoundAnalyzer) Reset() {
	p.proofs = 0
	p.perEpisode = make([]int, 0)
}

// ProofLengthAnalyzer records the length of every successful proof
type ProofLengthAnalyzer struct {
	lengths []int
}

var _ types.Analyzer = &ProofLengthAnalyzer{}

func NewProofLengthAnalyzer() *ProofLengthAnalyzer {
	return &ProofLengthAnalyzer{
		lengths: make([]int, 0),
	}
}

func (p *ProofLengthAnalyzer) Analyze(run, episode, timesteps int, name string, trace *types.Trace) {
	if trace.Reward() > 0 {
		p.lengths = append(p.lengths, trace.Len())
	}
}

func (p *ProofLengthAnalyzer) DataSet() types.DataSet {
	return p.lengths
}

func (p *ProofLengthAnalyzer) Reset() {
	p.lengths = make([]int, 0)
}

// ProofsFoundPlotter plots the cumulative proofs-found curves
func ProofsFoundPlotter(plotPath string) types.Comparator {
	if _, err := os.Stat(plotPath); err != nil {
		os.MkdirAll(plotPath, os.ModePerm)
	}
	return func(run, episodes int, names []string, ds []types.DataSet) {
		p := plot.New()
		p.Title.Text = "Proofs found"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "Completed proofs"
		for i := 0; i < len(names); i++ {
			proofs, ok := ds[i].([]int)
			if !ok || len(proofs) == 0 {
				continue
			}
			points := make(plotter.XYs, len(proofs))
			for j, v := range proofs {
				points[j] = plotter.XY{
					X: float64(j),
					Y: float64(v),
				}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
			fmt.Printf("Proofs found: %d for experiment: %s\n", proofs[len(proofs)-1], names[i])
		}
		p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_proofs_found.png"))
	}
}

// ProofLengthPlotter plots the length of each successful proof over time
func ProofLengthPlotter(plotPath string) types.Comparator {
	if _, err := os.Stat(plotPath); err != nil {
		os.MkdirAll(plotPath, os.ModePerm)
	}
	return func(run, episodes int, names []string, ds []types.DataSet) {
		p := plot.New()
		p.Title.Text = "Proof length"
		p.X.Label.Text = "Successful proof"
		p.Y.Label.Text = "Tactics applied"
		for i := 0; i < len(names); i++ {
			lengths, ok := ds[i].([]int)
			if !ok || len(lengths) == 0 {
				continue
			}
			points := make(plotter.XYs, len(lengths))
			for j, v := range lengths {
				points[j] = plotter.XY{
					X: float64(j),
					Y: float64(v),
				}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
		}
		p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_proof_length.png"))
	}
}
