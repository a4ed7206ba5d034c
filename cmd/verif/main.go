// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// verif reads newline-separated ensemble values and reports forecast
// verification statistics, optionally scored against an observation.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/aclements/go-ensemble/stats"
	"github.com/aclements/go-ensemble/vec"
)

var inputPath string

func main() {
	root := &cobra.Command{
		Use:           "verif",
		Short:         "ensemble forecast verification statistics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&inputPath, "input", "i", "",
		"read ensemble values from `file` instead of stdin")
	root.AddCommand(histCmd(), momentsCmd(), crpsCmd(), entropyCmd(),
		rankCmd(), wassersteinCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "verif:", err)
		os.Exit(1)
	}
}

// readInput reads one float64 per line from path, or from stdin if
// path is empty.
func readInput(path string) (*vec.Array, error) {
	f := os.Stdin
	if path != "" {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
	}
	var xs []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		l := scanner.Text()
		if l == "" {
			continue
		}
		v, err := strconv.ParseFloat(l, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "%s line %d", f.Name(), len(xs)+1)
		}
		xs = append(xs, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, f.Name())
	}
	if len(xs) == 0 {
		return nil, errors.Errorf("%s: no values", f.Name())
	}
	return vec.NewData(xs, len(xs)), nil
}

// readColumn reads a sample like readInput but promoted to [m, 1], the
// shape the binning statistics expect.
func readColumn(path string) (*vec.Array, error) {
	x, err := readInput(path)
	if err != nil {
		return nil, err
	}
	return vec.NewData(x.Data, x.Shape[0], 1), nil
}

func histCmd() *cobra.Command {
	var bins int
	var cdf bool
	cmd := &cobra.Command{
		Use:   "hist",
		Short: "print the empirical histogram or CDF of the ensemble",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := readInput(inputPath)
			if err != nil {
				return err
			}
			if cdf {
				edges, c, err := stats.CumulativeDensity(bins, x)
				if err != nil {
					return err
				}
				for k := 0; k <= bins; k++ {
					fmt.Printf("%.6g\t%.6g\n", edges.Data[k], c.Data[k])
				}
				return nil
			}
			edges, counts, err := stats.HistogramCounts(bins, x)
			if err != nil {
				return err
			}
			for b := 0; b < bins; b++ {
				fmt.Printf("%.6g\t%.6g\t%g\n", edges.Data[b], edges.Data[b+1], counts.Data[b])
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&bins, "bins", 10, "number of histogram bins")
	cmd.Flags().BoolVar(&cdf, "cdf", false, "print CDF values at the bin edges instead of counts")
	return cmd
}

func momentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "moments",
		Short: "print the ensemble mean, variance, and standard deviation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := readInput(inputPath)
			if err != nil {
				return err
			}
			v := stats.NewVariance(nil)
			if _, err := v.Call(x); err != nil {
				return err
			}
			mn := stats.NewMean(nil)
			mean, err := mn.Call(x)
			if err != nil {
				return err
			}
			vr, err := v.Finalize()
			if err != nil {
				return err
			}
			std, err := v.Stddev()
			if err != nil {
				return err
			}
			fmt.Printf("N %d  mean %.6g  variance %.6g  std dev %.6g\n",
				x.Shape[0], mean.Data[0], vr.Data[0], std.Data[0])
			return nil
		},
	}
}

func crpsCmd() *cobra.Command {
	var obs float64
	var method string
	cmd := &cobra.Command{
		Use:   "crps",
		Short: "score the ensemble against an observation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var m stats.CRPSMethod
			switch method {
			case "histogram":
				m = stats.CRPSHistogram
			case "kernel":
				m = stats.CRPSKernel
			case "gaussian":
				m = stats.CRPSGaussian
			default:
				return errors.Errorf("unknown method %q", method)
			}
			x, err := readInput(inputPath)
			if err != nil {
				return err
			}
			out, err := stats.CRPS(m, x, vec.Full(obs), 0)
			if err != nil {
				return err
			}
			fmt.Printf("%.6g\n", out.Data[0])
			return nil
		},
	}
	cmd.Flags().Float64Var(&obs, "obs", 0, "observed value to score against")
	cmd.Flags().StringVar(&method, "method", "kernel", "estimator: histogram, kernel, or gaussian")
	cmd.MarkFlagRequired("obs")
	return cmd
}

func entropyCmd() *cobra.Command {
	var bins int
	var normalized bool
	cmd := &cobra.Command{
		Use:   "entropy",
		Short: "print the Shannon entropy of the ensemble distribution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := readColumn(inputPath)
			if err != nil {
				return err
			}
			edges, counts, err := stats.HistogramCounts(bins, x)
			if err != nil {
				return err
			}
			ent, err := stats.EntropyFromCounts(counts, edges, normalized)
			if err != nil {
				return err
			}
			fmt.Printf("%.6g\n", ent.Data[0])
			return nil
		},
	}
	cmd.Flags().IntVar(&bins, "bins", 30, "number of histogram bins")
	cmd.Flags().BoolVar(&normalized, "normalized", false,
		"normalize to [0, 1] by the maximum entropy over the bins")
	return cmd
}

func rankCmd() *cobra.Command {
	var obs float64
	var bins int
	var score bool
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "rank an observation within the ensemble, or score ranks",
		Long: `Rank prints the normalized rank in [0, 1] of the observation within
the ensemble's empirical CDF. With --score the input values are
themselves ranks and the rank probability score is printed instead:
near 0 for a calibrated ensemble.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := readInput(inputPath)
			if err != nil {
				return err
			}
			if score {
				out, err := stats.RankProbabilityScore(x)
				if err != nil {
					return err
				}
				fmt.Printf("%.6g\n", out.Data[0])
				return nil
			}
			col := vec.NewData(x.Data, x.Shape[0], 1)
			edges, counts, err := stats.HistogramCounts(bins, col)
			if err != nil {
				return err
			}
			rank, err := stats.FindRank(edges, counts, vec.NewData([]float64{obs}, 1))
			if err != nil {
				return err
			}
			fmt.Printf("%.6g\n", rank.Data[0])
			return nil
		},
	}
	cmd.Flags().Float64Var(&obs, "obs", 0, "observed value to rank")
	cmd.Flags().IntVar(&bins, "bins", 30, "number of histogram bins")
	cmd.Flags().BoolVar(&score, "score", false,
		"treat the input as ranks and print the rank probability score")
	return cmd
}

func wassersteinCmd() *cobra.Command {
	var other string
	var bins int
	cmd := &cobra.Command{
		Use:   "wasserstein",
		Short: "1-Wasserstein distance between two ensembles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readColumn(inputPath)
			if err != nil {
				return err
			}
			q, err := readColumn(other)
			if err != nil {
				return err
			}
			// Shared edges spanning both samples make the CDFs
			// comparable.
			mins, maxs, err := stats.MinsMaxs(p, q)
			if err != nil {
				return err
			}
			edges, err := stats.Linspace(mins, maxs, bins)
			if err != nil {
				return err
			}
			_, cdfP, err := stats.CumulativeDensityWith(edges, p)
			if err != nil {
				return err
			}
			_, cdfQ, err := stats.CumulativeDensityWith(edges, q)
			if err != nil {
				return err
			}
			out, err := stats.Wasserstein(edges, cdfP, cdfQ)
			if err != nil {
				return err
			}
			fmt.Printf("%.6g\n", out.Data[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&other, "other", "", "`file` holding the second ensemble")
	cmd.Flags().IntVar(&bins, "bins", 100, "number of shared bins")
	cmd.MarkFlagRequired("other")
	return cmd
}
