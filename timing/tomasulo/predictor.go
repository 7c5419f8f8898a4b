package tomasulo

import "github.com/TheUnknownThing/RISC-V-Simulator/insts"

// PredictorState is one of the four states of a 2-bit saturating counter.
type PredictorState int

const (
	StrongNotTaken PredictorState = iota
	WeakNotTaken
	WeakTaken
	StrongTaken
)

// Taken reports whether the state predicts the branch is taken.
func (s PredictorState) Taken() bool {
	return s == WeakTaken || s == StrongTaken
}

// BranchPredictorStats reports prediction accuracy.
type BranchPredictorStats struct {
	Predictions    uint64
	Mispredictions uint64
}

// Accuracy returns the fraction of predictions that were correct.
func (s BranchPredictorStats) Accuracy() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Predictions-s.Mispredictions) / float64(s.Predictions)
}

// BranchPredictor is a single 2-bit saturating counter shared by every
// branch in the program. Prediction happens at Issue; Update is applied
// when the branch commits, which may be several cycles later.
type BranchPredictor struct {
	state PredictorState
	stats BranchPredictorStats
}

// NewBranchPredictor returns a predictor initialized to WeakNotTaken.
func NewBranchPredictor() *BranchPredictor {
	p := &BranchPredictor{}
	p.Reset()
	return p
}

// Predict returns whether a branch is predicted taken, and records the
// prediction for later accuracy accounting. pc is unused: the counter is
// shared across every branch, not indexed per PC.
func (p *BranchPredictor) Predict(pc uint32) bool {
	p.stats.Predictions++
	return p.state.Taken()
}

// Update applies the one-step saturating transition once a branch's actual
// outcome is known, and records a misprediction if the prediction made at
// Issue does not match. pc is unused, for the same reason as in Predict.
func (p *BranchPredictor) Update(pc uint32, taken bool, wasCorrect bool) {
	if !wasCorrect {
		p.stats.Mispredictions++
	}
	if taken {
		if p.state < StrongTaken {
			p.state++
		}
	} else {
		if p.state > StrongNotTaken {
			p.state--
		}
	}
}

// Stats returns the predictor's accuracy counters.
func (p *BranchPredictor) Stats() BranchPredictorStats {
	return p.stats
}

// Reset returns the counter to WeakNotTaken and clears statistics. This
// only resets the predictor's own state; it does not touch in-flight
// pipeline state, which is the Processor's responsibility.
func (p *BranchPredictor) Reset() {
	p.state = WeakNotTaken
	p.stats = BranchPredictorStats{}
}

// EvaluateBranch reports whether the B-type instruction's condition holds,
// given its two operand values.
func EvaluateBranch(op insts.Op, a, b uint32) bool {
	switch op {
	case insts.BEQ:
		return a == b
	case insts.BNE:
		return a != b
	case insts.BLT:
		return int32(a) < int32(b)
	case insts.BGE:
		return int32(a) >= int32(b)
	case insts.BLTU:
		return a < b
	case insts.BGEU:
		return a >= b
	default:
		return false
	}
}
