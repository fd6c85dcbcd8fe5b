package batch

// Progress events emitted by the runner, consumed by the CLI display.

type EventType string

const (
	EventBatchStart       EventType = "batchStart"
	EventScenarioStart    EventType = "scenarioStart"
	EventScenarioComplete EventType = "scenarioComplete"
	EventScenarioError    EventType = "scenarioError"
	EventBatchComplete    EventType = "batchComplete"
)

type ProgressEvent struct {
	Type     EventType
	Message  string
	Scenario *ScenarioResult
}

type ProgressCallback func(event ProgressEvent)

func NoopProgressCallback(ProgressEvent) {}
