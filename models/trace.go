package models

type Stage string

const (
	StageIntentExtraction Stage = "IntentExtraction"
	StageSafetyPolicy     Stage = "SafetyPolicy"
	StageSupervisor       Stage = "Supervisor"
	StageAction           Stage = "Action"
)

// TraceEvent is one step of a run's audit trail. Steps are 1-based and
// contiguous within a run.
type TraceEvent struct {
	Step    int    `json:"step" bson:"step"`
	Stage   Stage  `json:"stage" bson:"stage"`
	Summary string `json:"summary" bson:"summary"`
}
