package drive

import "math"

// Duty is a three-phase duty cycle set and the hexagon sector (1..6) it was built from.
// Sector 0 is the zero vector.
type Duty struct {
	A, B, C float64
	Sector  int
}

// sectors maps the sign pattern of the three projections to the hexagon sector.
var sectors = [8]int{0, 2, 6, 1, 4, 3, 5, 0}

// SVPWM computes centre-aligned duties for the stationary-frame voltage (alpha, beta).
func SVPWM(alpha, beta, vdc float64) Duty {
	if vdc < 1 {
		return Duty{A: 0.5, B: 0.5, C: 0.5}
	}
	v1 := beta
	v2 := (sqrt3*alpha - beta) / 2
	v3 := (-sqrt3*alpha - beta) / 2

	var n int
	if v1 > 0 {
		n++
	}
	if v2 > 0 {
		n += 2
	}
	if v3 > 0 {
		n += 4
	}
	sector := sectors[n]
	if sector == 0 {
		return Duty{A: 0.5, B: 0.5, C: 0.5}
	}

	k := sqrt3 / vdc
	var t1, t2 float64
	switch sector {
	case 1:
		t1, t2 = k*v2, k*v1
	case 2:
		t1, t2 = -k*v3, -k*v2
	case 3:
		t1, t2 = k*v1, k*v3
	case 4:
		t1, t2 = -k*v2, -k*v1
	case 5:
		t1, t2 = k*v3, k*v2
	case 6:
		t1, t2 = -k*v1, -k*v3
	}
	if s := t1 + t2; s > 1 {
		t1 /= s
		t2 /= s
	}
	h := (1 - t1 - t2) / 2

	var d Duty
	switch sector {
	case 1:
		d = Duty{A: h + t1 + t2, B: h + t2, C: h}
	case 2:
		d = Duty{A: h + t1, B: h + t1 + t2, C: h}
	case 3:
		d = Duty{A: h, B: h + t1 + t2, C: h + t2}
	case 4:
		d = Duty{A: h, B: h + t1, C: h + t1 + t2}
	case 5:
		d = Duty{A: h + t2, B: h, C: h + t1 + t2}
	case 6:
		d = Duty{A: h + t1 + t2, B: h, C: h + t1}
	}
	d.A, d.B, d.C = clamp01(d.A), clamp01(d.B), clamp01(d.C)
	d.Sector = sector
	return d
}

func clamp01(x float64) float64 { return math.Max(0, math.Min(1, x)) }

// GlitchJump is the largest duty change per phase between neighbouring angles of a smooth sweep.
const GlitchJump = 0.3

// sweep rotates a vector of magnitude vmag once around the hexagon in steps of stepDeg degrees and
// calls each with the duties of every pair of neighbouring angles. The angle is derived from the
// integer step index so the sweep always closes on 360°.
func sweep(vmag, vdc, stepDeg float64, each func(prev, d Duty)) {
	var prev Duty
	steps := int(math.Round(360 / stepDeg))
	for i := 0; i <= steps; i++ {
		theta := float64(i) * stepDeg * math.Pi / 180
		s, c := math.Sincos(theta)
		d := SVPWM(vmag*c, vmag*s, vdc)
		if i > 0 {
			each(prev, d)
		}
		prev = d
	}
}

// SweepJump sweeps a vector of magnitude vmag once around the hexagon in steps of stepDeg degrees
// and returns the largest duty change between neighbouring angles and the number of sector
// changes seen.
func SweepJump(vmag, vdc, stepDeg float64) (maxJump float64, transitions int) {
	sweep(vmag, vdc, stepDeg, func(prev, d Duty) {
		maxJump = math.Max(maxJump, d.maxJump(prev))
		if d.Sector != prev.Sector {
			transitions++
		}
	})
	return
}

// SweepGlitches counts the per phase duty changes above limit over the same sweep as SweepJump.
func SweepGlitches(vmag, vdc, stepDeg, limit float64) (glitches int) {
	sweep(vmag, vdc, stepDeg, func(prev, d Duty) {
		for _, jump := range [3]float64{d.A - prev.A, d.B - prev.B, d.C - prev.C} {
			if math.Abs(jump) > limit {
				glitches++
			}
		}
	})
	return
}

func (d Duty) maxJump(prev Duty) float64 {
	return math.Max(math.Abs(d.A-prev.A), math.Max(math.Abs(d.B-prev.B), math.Abs(d.C-prev.C)))
}
