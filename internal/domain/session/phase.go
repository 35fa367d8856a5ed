package session

// Phase is a step of the round lifecycle.
type Phase string

// Phases.
const (
	PhaseIdle        Phase = "IDLE"
	PhasePlaying     Phase = "PLAYING"
	PhaseVarFreeze   Phase = "VAR_FREEZE"
	PhaseResult      Phase = "RESULT"
	PhaseLeaderboard Phase = "LEADERBOARD"
)

func (p Phase) String() string { return string(p) }
