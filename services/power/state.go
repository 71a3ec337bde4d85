package power

// State is the power sequencer's position in the rail bring-up order.
type State uint8

const (
	FullReset State = iota
	WaitForReg12
	WaitForReg5
	WaitForRegPi
	Running
	Standby
)

func (s State) String() string {
	switch s {
	case FullReset:
		return "full_reset"
	case WaitForReg12:
		return "wait_reg12"
	case WaitForReg5:
		return "wait_reg5"
	case WaitForRegPi:
		return "wait_regpi"
	case Running:
		return "running"
	case Standby:
		return "standby"
	}
	return "unknown"
}

// next lists the only legal successor of each state.
var next = [...]State{
	FullReset:    WaitForReg12,
	WaitForReg12: WaitForReg5,
	WaitForReg5:  WaitForRegPi,
	WaitForRegPi: Running,
	Running:      Standby,
	Standby:      WaitForReg12,
}

// legal reports whether from -> to is an edge of the sequence.
func legal(from, to State) bool {
	return int(from) < len(next) && next[from] == to
}
