package thermal

// Curve maps a temperature to a torque multiplier: 1 up to Warn, 0 from Max on, linear between.
type Curve struct {
	Warn, Max float64
}

func (c Curve) Limit(t float64) float64 {
	switch {
	case t <= c.Warn:
		return 1
	case t >= c.Max:
		return 0
	}
	return 1 - (t-c.Warn)/(c.Max-c.Warn)
}

// Observation is what a derater sees at each control period.
type Observation struct {
	Tj    float64 // present junction temperature
	DTjDt float64 // [K/s]
	PLoss float64 // bridge loss expected at the commanded torque [W]
	Tamb  float64
}

// Derater decides the fraction of the commanded torque the inverter may deliver.
type Derater interface {
	Limit(Observation) float64
	Name() string
}

// Conventional derates on the measured junction temperature.
type Conventional struct {
	Curve
}

func NewConventional() Conventional { return Conventional{Curve{Warn: 130, Max: 150}} }

func (c Conventional) Limit(o Observation) float64 { return c.Curve.Limit(o.Tj) }

func (c Conventional) Name() string { return "conventional" }
