package agent

type State string

const (
	StateIdle         State = "idle"
	StateGenerating   State = "generating"
	StateExtracting   State = "extracting"
	StateExecuting    State = "executing"
	StateRepairing    State = "repairing"
	StateReExtracting State = "re_extracting"
	StateReExecuting  State = "re_executing"
	StateSuccess      State = "success"
	StateFailed       State = "failed"
)

func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}
