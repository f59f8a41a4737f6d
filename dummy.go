package aiinverter

import "github.com/evdrive/aiinverter/thermal"

// dummyDerater never derates. It stands in for the thermal predictor until the predictor is trained.
type dummyDerater struct{}

func (d dummyDerater) Limit(o thermal.Observation) float64 { return 1 }

func (d dummyDerater) Name() string { return "dummy" }
