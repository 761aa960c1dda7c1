// Package simulation grows toy event graphs and runs the geometry pipeline
// over them.
//
// The growth model is a bundle of N threads. Every tick each thread emits one
// event caused by its previous event; with probability n the new event also
// receives an edge from another thread's previous event, forming a junction.
// The last event of every thread is its frontier and stays pinned in the
// active set regardless of the coherence window.
//
// An Experiment chains growth, order-parameter sampling, spectral-dimension
// estimation and ball growth into one RUN_METRICS document:
//
//	exp := simulation.Experiment{
//	    ExperimentID: "pathA",
//	    Variant:      "base",
//	    Growth:       simulation.GrowthConfig{Threads: 8, Coupling: 0.4, Steps: 400, Window: 100, Seed: 1},
//	    OrderParams:  orderparam.DefaultConfig(),
//	    Spectral:     geometry.DefaultConfig(),
//	}
//	m, run, err := exp.Run(ctx)
package simulation
