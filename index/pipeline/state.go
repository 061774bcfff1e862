package pipeline

type State int

const (
	Polling State = iota
	ExtractingAddresses
	FetchingWallets
	FetchingJettons
	Persisting
	Evaluating
	Halted
)

func (s State) String() string {
	switch s {
	case Polling:
		return "Polling"
	case ExtractingAddresses:
		return "ExtractingAddresses"
	case FetchingWallets:
		return "FetchingWallets"
	case FetchingJettons:
		return "FetchingJettons"
	case Persisting:
		return "Persisting"
	case Evaluating:
		return "Evaluating"
	case Halted:
		return "Halted"
	default:
		return "Unknown"
	}
}
