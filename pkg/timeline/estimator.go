// Package timeline maps logical frame numbers to stream timestamps and back.
//
// The mapping is an estimate. Containers do not guarantee constant frame
// spacing, so callers that need an exact frame must refine by decoding
// (see package stream).
package timeline

import (
	"math/big"

	"github.com/johnblat/scrubcache/pkg/ports"
)

// TimeBase is the number of fallback timestamp units per second.
const TimeBase = 1000000

// fallbackDivisor divides the fallback base (the stream duration, or
// TimeBase when that is unknown) into frames: frame f maps to
// f*base/fallbackDivisor. It is not a per-frame timestamp step.
const fallbackDivisor = 250

// Method identifies which metadata an Estimator relies on.
type Method int

const (
	// MethodDuration uses stream duration and frame count.
	MethodDuration Method = iota
	// MethodFrameRate uses the average frame rate and the time base.
	MethodFrameRate
	// MethodFallback assumes a fixed number of units per frame.
	MethodFallback
)

// String returns the string representation of the method.
func (m Method) String() string {
	switch m {
	case MethodDuration:
		return "duration"
	case MethodFrameRate:
		return "frame-rate"
	default:
		return "fallback"
	}
}

// Estimator converts between frame numbers and timestamps of one stream.
type Estimator struct {
	info   ports.StreamInfo
	method Method
}

// NewEstimator creates an estimator for the stream, picking the most
// reliable method its metadata allows.
func NewEstimator(info ports.StreamInfo) *Estimator {
	e := &Estimator{info: info}
	switch {
	case info.Duration > 0 && info.FrameCount > 0:
		e.method = MethodDuration
	case info.AvgFrameRate.Valid() && info.TimeBase.Valid():
		e.method = MethodFrameRate
	default:
		e.method = MethodFallback
	}
	return e
}

// Method returns the estimation method in use.
func (e *Estimator) Method() Method {
	return e.method
}

// FrameToTimestamp returns the estimated timestamp of frame f in time base units.
func (e *Estimator) FrameToTimestamp(f int64) int64 {
	switch e.method {
	case MethodDuration:
		return rescale(f, []int64{e.info.Duration}, []int64{e.info.FrameCount})
	case MethodFrameRate:
		// seconds = f * den/num of the frame rate; ts = seconds * tb.den/tb.num
		fps, tb := e.info.AvgFrameRate, e.info.TimeBase
		return rescale(f, []int64{fps.Den, tb.Den}, []int64{fps.Num, tb.Num})
	default:
		return rescale(f, []int64{e.fallbackBase()}, []int64{fallbackDivisor})
	}
}

// TimestampToFrame returns the estimated frame number at timestamp ts.
func (e *Estimator) TimestampToFrame(ts int64) int64 {
	switch e.method {
	case MethodDuration:
		return rescale(ts, []int64{e.info.FrameCount}, []int64{e.info.Duration})
	case MethodFrameRate:
		fps, tb := e.info.AvgFrameRate, e.info.TimeBase
		return rescale(ts, []int64{fps.Num, tb.Num}, []int64{fps.Den, tb.Den})
	default:
		return rescale(ts, []int64{fallbackDivisor}, []int64{e.fallbackBase()})
	}
}

// FrameInterval returns the estimated timestamp distance between two
// consecutive frames, at least 1.
func (e *Estimator) FrameInterval() int64 {
	d := e.FrameToTimestamp(1) - e.FrameToTimestamp(0)
	if d < 1 {
		return 1
	}
	return d
}

// TotalFrames returns the number of frames in the stream: the container's
// frame count when known, otherwise an estimate from the duration. It is
// never less than 1.
func (e *Estimator) TotalFrames() int64 {
	n := e.info.FrameCount
	if n <= 0 && e.info.Duration > 0 {
		n = e.TimestampToFrame(e.info.Duration)
	}
	if n < 1 {
		return 1
	}
	return n
}

func (e *Estimator) fallbackBase() int64 {
	if e.info.Duration > 0 {
		return e.info.Duration
	}
	return TimeBase
}

// rescale computes a * prod(mul) / prod(div) rounded to the nearest integer,
// halfway cases away from zero, without intermediate overflow.
// A zero divisor yields 0.
func rescale(a int64, mul, div []int64) int64 {
	num := big.NewInt(a)
	for _, m := range mul {
		num.Mul(num, big.NewInt(m))
	}
	den := big.NewInt(1)
	for _, d := range div {
		den.Mul(den, big.NewInt(d))
	}
	if den.Sign() == 0 {
		return 0
	}
	if den.Sign() < 0 {
		num.Neg(num)
		den.Neg(den)
	}

	half := new(big.Int).Rsh(den, 1)
	if num.Sign() < 0 {
		num.Sub(num, half)
	} else {
		num.Add(num, half)
	}
	num.Quo(num, den)
	if !num.IsInt64() {
		if num.Sign() < 0 {
			return -1 << 63
		}
		return 1<<63 - 1
	}
	return num.Int64()
}
