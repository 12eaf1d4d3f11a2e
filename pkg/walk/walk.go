// Package walk generates synthetic (and historical-replay) underlying price
// paths, stepping either a raw price or a full option chain forward in
// time. Randomness is seeded explicitly so a fixed seed reproduces the same
// path.
package walk

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/johnayoung/go-options-analytics/pkg/chain"
	"github.com/johnayoung/go-options-analytics/pkg/primitives"
)

// WalkType selects which stochastic process (or replay) drives a path.
type WalkType int

const (
	Brownian WalkType = iota
	GeometricBrownian
	LogReturns
	MeanReverting
	JumpDiffusion
	Garch
	Heston
	Telegraph
	Custom
	Historical
)

type BrownianParams struct{ DT, Drift, Vol float64 }

type GeometricBrownianParams struct{ DT, Drift, Vol float64 }

type LogReturnsParams struct {
	DT, ExpectedReturn, Vol float64
	Autocorrelation         float64
}

type MeanRevertingParams struct{ DT, Vol, Speed, Mean float64 }

type JumpDiffusionParams struct {
	DT, Drift, Vol               float64
	Intensity, JumpMean, JumpVol float64
}

type GarchParams struct {
	DT, Drift, Vol     float64
	Alpha, Beta, Omega float64
}

type HestonParams struct {
	DT, Drift, Vol float64
	Kappa, Theta   float64
	Xi, Rho        float64
}

type TelegraphParams struct {
	DT, Vol             float64
	RateUp, RateDown    float64
	DriftUp, DriftDown  float64
}

type CustomParams struct {
	DT, Drift, Vol         float64
	VoV, VolSpeed, VolMean float64
}

type HistoricalParams struct {
	Timeframe primitives.TimeFrame
	Prices    []float64
	Symbol    string
}

// WalkTypeAble generates the raw price sequence for one walk type. Every
// method returns `size` realized prices plus the volatility it used (nil
// when the walk type has no single representative volatility, in which
// case the caller falls back to a default). DefaultWalker implements every
// method with the formulas described for each process; embed it and
// override only the methods a custom generator needs.
type WalkTypeAble interface {
	Brownian(size int, init float64, p BrownianParams, src rand.Source) ([]primitives.Positive, *primitives.Positive)
	GeometricBrownian(size int, init float64, p GeometricBrownianParams, src rand.Source) ([]primitives.Positive, *primitives.Positive)
	LogReturns(size int, init float64, p LogReturnsParams, src rand.Source) ([]primitives.Positive, *primitives.Positive)
	MeanReverting(size int, init float64, p MeanRevertingParams, src rand.Source) ([]primitives.Positive, *primitives.Positive)
	JumpDiffusion(size int, init float64, p JumpDiffusionParams, src rand.Source) ([]primitives.Positive, *primitives.Positive)
	Garch(size int, init float64, p GarchParams, src rand.Source) ([]primitives.Positive, *primitives.Positive)
	Heston(size int, init float64, p HestonParams, src rand.Source) ([]primitives.Positive, *primitives.Positive)
	Telegraph(size int, init float64, p TelegraphParams, src rand.Source) ([]primitives.Positive, *primitives.Positive)
	Custom(size int, init float64, p CustomParams, src rand.Source) ([]primitives.Positive, *primitives.Positive)
	Historical(size int, p HistoricalParams) ([]primitives.Positive, *primitives.Positive)
}

// DefaultWalker implements WalkTypeAble with the reference formula for each
// process. Embed it in a zero-field struct to get every method for free.
type DefaultWalker struct{}

func clampPositive(f float64) primitives.Positive {
	if f < 0 {
		f = 0
	}
	return primitives.Must(f)
}

func normalSample(src rand.Source, mu, sigma float64) float64 {
	d := distuv.Normal{Mu: mu, Sigma: sigma, Src: src}
	return d.Rand()
}

// Brownian implements arithmetic Brownian motion: S_{t+1} = S_t + drift*dt +
// vol*sqrt(dt)*Z, clamped to non-negative.
func (DefaultWalker) Brownian(size int, init float64, p BrownianParams, src rand.Source) ([]primitives.Positive, *primitives.Positive) {
	out := make([]primitives.Positive, size)
	s := init
	sqrtDT := math.Sqrt(p.DT)
	for i := 0; i < size; i++ {
		z := normalSample(src, 0, 1)
		s = s + p.Drift*p.DT + p.Vol*sqrtDT*z
		out[i] = clampPositive(s)
	}
	vol := primitives.Must(p.Vol)
	return out, &vol
}

// GeometricBrownian implements lognormal GBM: S_{t+1} =
// S_t*exp((drift-vol^2/2)*dt + vol*sqrt(dt)*Z).
func (DefaultWalker) GeometricBrownian(size int, init float64, p GeometricBrownianParams, src rand.Source) ([]primitives.Positive, *primitives.Positive) {
	out := make([]primitives.Positive, size)
	s := init
	sqrtDT := math.Sqrt(p.DT)
	for i := 0; i < size; i++ {
		z := normalSample(src, 0, 1)
		s = s * math.Exp((p.Drift-0.5*p.Vol*p.Vol)*p.DT+p.Vol*sqrtDT*z)
		out[i] = clampPositive(s)
	}
	vol := primitives.Must(p.Vol)
	return out, &vol
}

// LogReturns walks an AR(1) process on log returns: r_t =
// autocorrelation*r_{t-1} + expected_return*dt + vol*sqrt(dt)*Z, then
// S_{t+1} = S_t*exp(r_t).
func (DefaultWalker) LogReturns(size int, init float64, p LogReturnsParams, src rand.Source) ([]primitives.Positive, *primitives.Positive) {
	out := make([]primitives.Positive, size)
	s := init
	sqrtDT := math.Sqrt(p.DT)
	prevR := 0.0
	for i := 0; i < size; i++ {
		z := normalSample(src, 0, 1)
		r := p.Autocorrelation*prevR + p.ExpectedReturn*p.DT + p.Vol*sqrtDT*z
		prevR = r
		s = s * math.Exp(r)
		out[i] = clampPositive(s)
	}
	vol := primitives.Must(p.Vol)
	return out, &vol
}

// MeanReverting implements an Ornstein-Uhlenbeck process: dS = speed*(mean -
// S)*dt + vol*sqrt(dt)*Z.
func (DefaultWalker) MeanReverting(size int, init float64, p MeanRevertingParams, src rand.Source) ([]primitives.Positive, *primitives.Positive) {
	out := make([]primitives.Positive, size)
	s := init
	sqrtDT := math.Sqrt(p.DT)
	for i := 0; i < size; i++ {
		z := normalSample(src, 0, 1)
		s = s + p.Speed*(p.Mean-s)*p.DT + p.Vol*sqrtDT*z
		out[i] = clampPositive(s)
	}
	vol := primitives.Must(p.Vol)
	return out, &vol
}

// JumpDiffusion layers Poisson-arriving, log-normally sized jumps onto a
// GBM base path (Merton's jump-diffusion model).
func (DefaultWalker) JumpDiffusion(size int, init float64, p JumpDiffusionParams, src rand.Source) ([]primitives.Positive, *primitives.Positive) {
	out := make([]primitives.Positive, size)
	s := init
	sqrtDT := math.Sqrt(p.DT)
	poisson := distuv.Poisson{Lambda: p.Intensity * p.DT, Src: src}
	for i := 0; i < size; i++ {
		z := normalSample(src, 0, 1)
		s = s * math.Exp((p.Drift-0.5*p.Vol*p.Vol)*p.DT+p.Vol*sqrtDT*z)

		n := int(math.Round(poisson.Rand()))
		for j := 0; j < n; j++ {
			jump := normalSample(src, p.JumpMean, p.JumpVol)
			s = s * math.Exp(jump)
		}
		out[i] = clampPositive(s)
	}
	vol := primitives.Must(p.Vol)
	return out, &vol
}

// Garch drives a GBM price with a recursive conditional variance: sigma^2_t
// = omega + alpha*eps^2_{t-1} + beta*sigma^2_{t-1}.
func (DefaultWalker) Garch(size int, init float64, p GarchParams, src rand.Source) ([]primitives.Positive, *primitives.Positive) {
	out := make([]primitives.Positive, size)
	s := init
	variance := p.Vol * p.Vol
	prevEps := 0.0
	for i := 0; i < size; i++ {
		sigma := math.Sqrt(variance)
		z := normalSample(src, 0, 1)
		eps := sigma * z
		s = s * math.Exp((p.Drift-0.5*variance)*p.DT+eps*math.Sqrt(p.DT))
		out[i] = clampPositive(s)

		variance = p.Omega + p.Alpha*prevEps*prevEps + p.Beta*variance
		prevEps = eps
	}
	vol := primitives.Must(math.Sqrt(variance))
	return out, &vol
}

// Heston simulates the two-factor stochastic-volatility model: the
// variance follows a CIR process correlated (via rho) with the price's
// driving noise.
func (DefaultWalker) Heston(size int, init float64, p HestonParams, src rand.Source) ([]primitives.Positive, *primitives.Positive) {
	out := make([]primitives.Positive, size)
	s := init
	v := p.Vol * p.Vol
	sqrtDT := math.Sqrt(p.DT)
	for i := 0; i < size; i++ {
		z1 := normalSample(src, 0, 1)
		z2 := normalSample(src, 0, 1)
		zCorr := p.Rho*z1 + math.Sqrt(1-p.Rho*p.Rho)*z2

		if v < 0 {
			v = 0
		}
		sqrtV := math.Sqrt(v)
		s = s * math.Exp((p.Drift-0.5*v)*p.DT+sqrtV*sqrtDT*z1)
		v = v + p.Kappa*(p.Theta-v)*p.DT + p.Xi*sqrtV*sqrtDT*zCorr
		out[i] = clampPositive(s)
	}
	vol := primitives.Must(math.Sqrt(math.Abs(v)))
	return out, &vol
}

// Telegraph switches between two drift regimes (up/down) according to
// exponential holding-time rates, a simple two-state Markov-modulated
// random walk.
func (DefaultWalker) Telegraph(size int, init float64, p TelegraphParams, src rand.Source) ([]primitives.Positive, *primitives.Positive) {
	out := make([]primitives.Positive, size)
	s := init
	sqrtDT := math.Sqrt(p.DT)
	up := true
	unif := distuv.Uniform{Min: 0, Max: 1, Src: src}
	for i := 0; i < size; i++ {
		switchProb := p.RateDown * p.DT
		if up {
			switchProb = p.RateUp * p.DT
		}
		if unif.Rand() < switchProb {
			up = !up
		}

		drift := p.DriftDown
		if up {
			drift = p.DriftUp
		}
		z := normalSample(src, 0, 1)
		s = s + drift*p.DT + p.Vol*sqrtDT*z
		out[i] = clampPositive(s)
	}
	vol := primitives.Must(p.Vol)
	return out, &vol
}

// Custom drives the price with a mean-reverting volatility-of-volatility
// process: the instantaneous vol itself follows an OU process around
// VolMean, and that vol feeds a GBM price step.
func (DefaultWalker) Custom(size int, init float64, p CustomParams, src rand.Source) ([]primitives.Positive, *primitives.Positive) {
	out := make([]primitives.Positive, size)
	s := init
	vol := p.Vol
	sqrtDT := math.Sqrt(p.DT)
	for i := 0; i < size; i++ {
		zVol := normalSample(src, 0, 1)
		vol = vol + p.VolSpeed*(p.VolMean-vol)*p.DT + p.VoV*sqrtDT*zVol
		if vol < 0 {
			vol = -vol
		}

		z := normalSample(src, 0, 1)
		s = s * math.Exp((p.Drift-0.5*vol*vol)*p.DT+vol*sqrtDT*z)
		out[i] = clampPositive(s)
	}
	finalVol := primitives.Must(vol)
	return out, &finalVol
}

// Historical replays p.Prices verbatim (truncated or, if too short for
// size, returned empty) and derives a constant volatility from its
// log-returns, annualized from p.Timeframe.
func (DefaultWalker) Historical(size int, p HistoricalParams) ([]primitives.Positive, *primitives.Positive) {
	if len(p.Prices) < size+1 {
		return nil, nil
	}
	out := make([]primitives.Positive, size)
	for i := 0; i < size; i++ {
		out[i] = clampPositive(p.Prices[i])
	}

	logReturns := make([]float64, 0, len(p.Prices)-1)
	for i := 1; i < len(p.Prices); i++ {
		if p.Prices[i-1] <= 0 || p.Prices[i] <= 0 {
			continue
		}
		logReturns = append(logReturns, math.Log(p.Prices[i]/p.Prices[i-1]))
	}
	if len(logReturns) < 2 {
		return out, nil
	}
	sampleVol := stat.StdDev(logReturns, nil)
	annualFraction := p.Timeframe.AnnualFraction()
	if annualFraction <= 0 {
		return out, nil
	}
	annualized := adjustVolatility(sampleVol, annualFraction)
	v := primitives.Must(annualized)
	return out, &v
}

// adjustVolatility rescales a per-step standard deviation measured over a
// period that is annualFraction of a year into an annualized figure.
func adjustVolatility(perStepVol, annualFraction float64) float64 {
	if annualFraction <= 0 {
		return perStepVol
	}
	return perStepVol / math.Sqrt(annualFraction)
}

// Step pairs a point in time with the realized value at that time: a
// price for generator_positive, a whole OptionChain for
// generator_optionchain.
type Step[Y any] struct {
	X primitives.ExpirationDate
	Y Y
}

// WalkParams configures a single path generation run: how many steps to
// produce, the starting step, which process drives it, and that
// process's parameters.
type WalkParams[Y any] struct {
	Size      int
	InitStep  Step[Y]
	InitPrice primitives.Positive
	Timeframe primitives.TimeFrame
	WalkType  WalkType
	Walker    WalkTypeAble
	Seed      uint64

	Brownian          BrownianParams
	GeometricBrownian GeometricBrownianParams
	LogReturns        LogReturnsParams
	MeanReverting     MeanRevertingParams
	JumpDiffusion     JumpDiffusionParams
	Garch             GarchParams
	Heston            HestonParams
	Telegraph         TelegraphParams
	Custom            CustomParams
	Historical        HistoricalParams
}

func walker[Y any](p WalkParams[Y]) WalkTypeAble {
	if p.Walker != nil {
		return p.Walker
	}
	return DefaultWalker{}
}

// resolve dispatches on WalkType to produce the raw y-step sequence and the
// volatility it implies, requesting one more than Size since the caller
// drops the first (duplicate of the init step).
func resolve[Y any](p WalkParams[Y]) ([]primitives.Positive, *primitives.Positive) {
	w := walker(p)
	src := rand.NewSource(p.Seed)
	n := p.Size + 1
	init := p.InitPrice.ToFloat64()

	switch p.WalkType {
	case Brownian:
		return w.Brownian(n, init, p.Brownian, src)
	case GeometricBrownian:
		return w.GeometricBrownian(n, init, p.GeometricBrownian, src)
	case LogReturns:
		return w.LogReturns(n, init, p.LogReturns, src)
	case MeanReverting:
		return w.MeanReverting(n, init, p.MeanReverting, src)
	case JumpDiffusion:
		return w.JumpDiffusion(n, init, p.JumpDiffusion, src)
	case Garch:
		return w.Garch(n, init, p.Garch, src)
	case Heston:
		return w.Heston(n, init, p.Heston, src)
	case Telegraph:
		return w.Telegraph(n, init, p.Telegraph, src)
	case Custom:
		return w.Custom(n, init, p.Custom, src)
	case Historical:
		return w.Historical(n, p.Historical)
	default:
		return nil, nil
	}
}

const defaultVolatility = 0.20

// GeneratePositive runs the configured walk and returns up to Size steps
// of realized price, advancing the time axis by one Timeframe unit per
// step and stopping early if the expiration would go negative.
func GeneratePositive(p WalkParams[primitives.Positive]) ([]Step[primitives.Positive], error) {
	ySteps, _ := resolve(p)
	if len(ySteps) == 0 {
		return nil, nil
	}
	ySteps = ySteps[1:]

	steps := []Step[primitives.Positive]{p.InitStep}
	prevX := p.InitStep.X
	for _, y := range ySteps {
		if len(steps) >= p.Size {
			break
		}
		nextX, err := prevX.Next(p.Timeframe)
		if err != nil {
			break
		}
		prevX = nextX
		steps = append(steps, Step[primitives.Positive]{X: prevX, Y: y})
	}
	return steps, nil
}

// GenerateOptionChain runs the configured walk and rebuilds a full
// OptionChain at every step: the underlying price is replaced by the
// walked value and implied volatility by the walk's realized volatility
// (or defaultVolatility if the walk type yielded none).
func GenerateOptionChain(p WalkParams[chain.OptionChain]) ([]Step[chain.OptionChain], error) {
	ySteps, vol := resolve(p)
	if len(ySteps) == 0 {
		return nil, nil
	}
	ySteps = ySteps[1:]

	sigma := defaultVolatility
	if vol != nil {
		sigma = vol.ToFloat64()
	}
	sigmaPositive := primitives.Must(sigma)

	steps := []Step[chain.OptionChain]{p.InitStep}
	prevX := p.InitStep.X
	prevY := p.InitStep.Y
	for _, y := range ySteps {
		if len(steps) >= p.Size {
			break
		}
		nextX, err := prevX.Next(p.Timeframe)
		if err != nil {
			break
		}
		prevX = nextX

		params := prevY.ToBuildParams().
			WithUnderlyingPrice(y).
			WithImpliedVolatility(sigmaPositive).
			WithExpiration(prevX)
		rebuilt, err := chain.BuildChain(params)
		if err != nil {
			return nil, err
		}
		prevY = rebuilt
		steps = append(steps, Step[chain.OptionChain]{X: prevX, Y: prevY})
	}
	return steps, nil
}
