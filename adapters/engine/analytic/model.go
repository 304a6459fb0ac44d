package analytic

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

const (
	tCMB        = 2.7255
	sigmaRadius = 8.0 // Mpc/h

	// ln k range and node count of the sigma8 integral
	lnKLow      = -11.512925464970229 // ln 1e-5
	lnKHigh     = 4.605170185988092   // ln 1e2
	sigmaPoints = 2048
)

// model holds the derived quantities of one flat LCDM cosmology
type model struct {
	h         float64
	ns        float64
	omegaM    float64 // total matter density today
	omegaL    float64
	soundHor  float64 // Mpc
	alphaG    float64
	theta2    float64
	amplitude float64
}

func newModel(sigma8, omegaCDM, omegaB, h, ns float64) *model {
	wm := omegaCDM + omegaB
	fb := omegaB / wm
	theta := tCMB / 2.7

	m := &model{
		h:        h,
		ns:       ns,
		omegaM:   wm / (h * h),
		soundHor: 44.5 * math.Log(9.83/wm) / math.Sqrt(1+10*math.Pow(omegaB, 0.75)),
		alphaG:   1 - 0.328*math.Log(431*wm)*fb + 0.38*math.Log(22.3*wm)*fb*fb,
		theta2:   theta * theta,
	}
	m.omegaL = 1 - m.omegaM
	m.amplitude = 1
	s := m.sigma(sigmaRadius)
	m.amplitude = sigma8 * sigma8 / (s * s)
	return m
}

// transfer is the no-wiggle transfer function, k in h/Mpc
func (m *model) transfer(k float64) float64 {
	ks := k * m.h * m.soundHor
	gamma := m.omegaM * m.h * (m.alphaG + (1-m.alphaG)/(1+math.Pow(0.43*ks, 4)))
	q := k * m.theta2 / gamma
	l0 := math.Log(2*math.E + 1.8*q)
	c0 := 14.2 + 731/(1+62.5*q)
	return l0 / (l0 + c0*q*q)
}

// power is P(k, z=0) in (Mpc/h)^3
func (m *model) power(k float64) float64 {
	t := m.transfer(k)
	return m.amplitude * math.Pow(k, m.ns) * t * t
}

// sigma is the rms linear fluctuation in spheres of radius r Mpc/h at z=0
func (m *model) sigma(r float64) float64 {
	integrand := func(lnk float64) float64 {
		k := math.Exp(lnk)
		w := tophat(k * r)
		return k * k * k * m.power(k) * w * w
	}
	v := quad.Fixed(integrand, lnKLow, lnKHigh, sigmaPoints, nil, 0)
	return math.Sqrt(v / (2 * math.Pi * math.Pi))
}

// growth is the linear growth factor normalized to 1 at z=0
func (m *model) growth(z float64) float64 {
	return m.growthSuppression(z) / (1 + z) / m.growthSuppression(0)
}

// growthSuppression is the Carroll, Press & Turner (1992) fit g(z)
func (m *model) growthSuppression(z float64) float64 {
	a3 := (1 + z) * (1 + z) * (1 + z)
	e2 := m.omegaM*a3 + m.omegaL
	om := m.omegaM * a3 / e2
	ol := m.omegaL / e2
	return 2.5 * om / (math.Pow(om, 4.0/7.0) - ol + (1+om/2)*(1+ol/70))
}

func tophat(x float64) float64 {
	if x < 1e-4 {
		return 1 - x*x/10
	}
	return 3 * (math.Sin(x) - x*math.Cos(x)) / (x * x * x)
}
