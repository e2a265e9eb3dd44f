package train

// History records the learning curve of a Fit call.
//
// StepLoss has one entry per optimizer step and EpochLoss one per epoch
// (the mean step loss). The evaluation series are aligned with Epochs,
// which lists the 1-based epoch after which each evaluation ran. Test
// series are empty when no test set was given.
type History struct {
	StepLoss  []float64
	EpochLoss []float64

	Epochs    []int
	TrainLoss []float64
	TrainAcc  []float64
	TestLoss  []float64
	TestAcc   []float64

	// StoppedEarly is set when patience ran out before the last epoch.
	StoppedEarly bool
}

// FinalTrainAcc returns the last recorded training accuracy, or 0.
func (h *History) FinalTrainAcc() float64 {
	return last(h.TrainAcc)
}

// FinalTestAcc returns the last recorded test accuracy, or 0.
func (h *History) FinalTestAcc() float64 {
	return last(h.TestAcc)
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}
