// Package kernelshap explains the predictions of black-box models with Kernel
// SHAP, a model-agnostic estimator of Shapley value feature attributions.
//
// The model is only ever queried: the explainer builds synthetic instances
// that take some features from the instance being explained and the rest from
// a background set, averages the model over the background, and fits an
// efficiency-constrained weighted linear regression whose coefficients are the
// attributions. Attributions of every output sum to link(f(x)) - link(E[f]).
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/kernelshap/background"
//	    "github.com/YuminosukeSato/kernelshap/core/model"
//	    "github.com/YuminosukeSato/kernelshap/explainer"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    bg, err := background.NewSet(mat.NewDense(1, 3, nil), nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    f := model.RowFunc(func(x []float64) float64 { return x[0] + 2*x[1] })
//	    e, err := explainer.NewKernelExplainer(context.Background(), f, bg)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    exp, err := e.Explain(context.Background(), []float64{1, 1, 1})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(exp.Values(0)) // [1 2 0]
//	}
//
// # Packages
//
//   - explainer: KernelExplainer, explanations, configuration and metrics
//   - coalition: masks, the Shapley kernel and coalition sampling plans
//   - linear: the constrained weighted least-squares solver and L1 selection
//   - background: weighted background sets, sampling and k-means summaries
//   - link: identity and logit link functions
//   - metrics: weighted goodness-of-fit measures
//   - preprocessing: feature standardization
//   - performance: pooled buffers for synthetic batches
//   - core/model: the Predictor interface and persistence helpers
//   - core/parallel: worker pools
//   - pkg/errors, pkg/log: error kinds, warnings and structured logging
//
// # Concurrency
//
// A KernelExplainer is safe for concurrent use. Models are called from
// several goroutines unless WithSerialModel is set. Sampled explanations are
// reproducible for a fixed seed regardless of scheduling.
package kernelshap
