package main

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tangent-ml/tangent/features"
	"github.com/tangent-ml/tangent/internal/exact"
	"github.com/tangent-ml/tangent/internal/rng"
	"github.com/tangent-ml/tangent/internal/tensor"
)

// verifyConfig describes the fully connected network whose approximate
// kernels are compared against the closed-form computation.
type verifyConfig struct {
	Batch    int     `yaml:"batch"`
	InputDim int     `yaml:"input_dim"`
	Depth    int     `yaml:"depth"`
	WStd     float64 `yaml:"w_std"`

	Method        string `yaml:"method"`
	FeatureDim0   int    `yaml:"feature_dim0"`
	FeatureDim1   int    `yaml:"feature_dim1"`
	SketchDim     int    `yaml:"sketch_dim"`
	PolyDegree    int    `yaml:"poly_degree"`
	PolySketchDim int    `yaml:"poly_sketch_dim"`
}

func (c *verifyConfig) validate() error {
	if c.Batch <= 0 || c.InputDim <= 0 {
		return fmt.Errorf("batch and input_dim must be positive, got %d and %d", c.Batch, c.InputDim)
	}
	if c.Depth < 1 {
		return fmt.Errorf("depth must be at least 1, got %d", c.Depth)
	}
	if c.WStd == 0 {
		c.WStd = math.Sqrt2
	}
	if c.Method == "" {
		c.Method = "rf"
	}
	return nil
}

func loadConfig(path string) (*verifyConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &verifyConfig{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// buildNetwork assembles depth Dense+Relu blocks and a final width-1 readout,
// matching the architecture the exact kernel computation assumes.
func buildNetwork(cfg *verifyConfig) (features.Layer, error) {
	method, err := features.ParseMethod(cfg.Method)
	if err != nil {
		return features.Layer{}, err
	}
	relu := features.ReluConfig{
		FeatureDim0:   cfg.FeatureDim0,
		FeatureDim1:   cfg.FeatureDim1,
		SketchDim:     cfg.SketchDim,
		PolyDegree:    cfg.PolyDegree,
		PolySketchDim: cfg.PolySketchDim,
		Method:        method,
	}
	layers := make([]features.Layer, 0, 2*cfg.Depth+1)
	for i := 0; i < cfg.Depth; i++ {
		blockCfg := relu
		blockCfg.TopLayer = i == cfg.Depth-1
		layers = append(layers,
			features.DenseFeatures(512, cfg.WStd, 0),
			features.ReluFeatures(blockCfg),
		)
	}
	layers = append(layers, features.DenseFeatures(1, cfg.WStd, 0))
	return features.Serial(layers...), nil
}

func gram(m tensor.Matrix, name string) (*tensor.Dense, error) {
	d, err := tensor.AsDense(m, name+" gram")
	if err != nil {
		return nil, err
	}
	flat, err := d.Reshape(tensor.Shape{d.Rows(), d.Cols()})
	if err != nil {
		return nil, err
	}
	return flat.Gram(), nil
}

// frobError returns ‖a−b‖_F / ‖b‖_F.
func frobError(a, b *tensor.Dense) float64 {
	var num, den float64
	da, db := a.Data(), b.Data()
	for i := range db {
		d := da[i] - db[i]
		num += d * d
		den += db[i] * db[i]
	}
	if den == 0 {
		return math.Sqrt(num)
	}
	return math.Sqrt(num / den)
}

func runVerify(cfg *verifyConfig, seed uint64, trials int, out *cobra.Command) error {
	key := rng.NewKey(seed)
	keys := key.Split(trials + 1)
	x, err := tensor.FromSlice(keys[trials].Normal(cfg.Batch, cfg.InputDim),
		tensor.Shape{cfg.Batch, cfg.InputDim})
	if err != nil {
		return err
	}

	nngpExact, ntkExact, err := exact.MLPKernels(x, cfg.Depth, cfg.WStd)
	if err != nil {
		return err
	}

	net, err := buildNetwork(cfg)
	if err != nil {
		return err
	}

	var nngpErr, ntkErr float64
	for t := 0; t < trials; t++ {
		_, params, err := net.InitShape(keys[t], x.Shape())
		if err != nil {
			return err
		}
		f, err := net.ApplyInput(x, params)
		if err != nil {
			return err
		}
		nngpApprox, err := gram(f.NNGP, "nngp")
		if err != nil {
			return err
		}
		ntkApprox, err := gram(f.NTK, "ntk")
		if err != nil {
			return err
		}
		nngpErr += frobError(nngpApprox, nngpExact)
		ntkErr += frobError(ntkApprox, ntkExact)
	}
	nngpErr /= float64(trials)
	ntkErr /= float64(trials)

	out.Printf("method=%s depth=%d batch=%d input_dim=%d trials=%d\n",
		cfg.Method, cfg.Depth, cfg.Batch, cfg.InputDim, trials)
	out.Printf("nngp relative frobenius error: %.6f\n", nngpErr)
	out.Printf("ntk  relative frobenius error: %.6f\n", ntkErr)
	return nil
}

func newVerifyCmd() *cobra.Command {
	var (
		configPath string
		seed       uint64
		trials     int
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare approximate feature-map kernels against the exact computation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if trials < 1 {
				return fmt.Errorf("trials must be at least 1, got %d", trials)
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runVerify(cfg, seed, trials, cmd)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "net.yaml", "network config file")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().IntVar(&trials, "trials", 1, "number of averaged trials")
	return cmd
}
