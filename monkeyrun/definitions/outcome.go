package definitions

// Outcome is the terminal state of a run.
type Outcome int

const (
	Failed Outcome = iota
	NoDevice
	Cancelled
	Completed
)

func (o Outcome) String() string {
	switch o {
	case NoDevice:
		return "no_device"
	case Cancelled:
		return "cancelled"
	case Completed:
		return "completed"
	default:
		return "failed"
	}
}
