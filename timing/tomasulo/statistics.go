package tomasulo

// Statistics accumulates per-cycle counters over a run, in the same value-
// struct-with-derived-metrics style the pack uses throughout for reporting
// performance numbers.
type Statistics struct {
	Cycles       uint64
	Instructions uint64
	Commits      uint64

	StructuralStalls  uint64
	Flushes           uint64
	Mispredictions    uint64
	BranchResolutions uint64

	LoadsExecuted  uint64
	StoresExecuted uint64
}

// CPI returns cycles per committed instruction, or 0 if nothing has
// committed yet.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// BranchAccuracy returns the fraction of resolved branches that were
// correctly predicted.
func (s Statistics) BranchAccuracy() float64 {
	if s.BranchResolutions == 0 {
		return 0
	}
	return float64(s.BranchResolutions-s.Mispredictions) / float64(s.BranchResolutions)
}
