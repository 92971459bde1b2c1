package relay

// Outcome is the synchronous result of HandleEvent. Only OutcomeDispatched
// leads to any side effect.
type Outcome int

const (
	OutcomeDispatched Outcome = iota
	OutcomeUnmonitored
	OutcomeNoAuthor
	OutcomeBot
	OutcomeMembership
	OutcomeEmpty
	OutcomeQueueFull
	OutcomeClosed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDispatched:
		return "dispatched"
	case OutcomeUnmonitored:
		return "unmonitored"
	case OutcomeNoAuthor:
		return "no_author"
	case OutcomeBot:
		return "bot"
	case OutcomeMembership:
		return "membership"
	case OutcomeEmpty:
		return "empty"
	case OutcomeQueueFull:
		return "queue_full"
	case OutcomeClosed:
		return "closed"
	default:
		return "unknown"
	}
}
