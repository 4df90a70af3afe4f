package cadence

// TriggerType identifies what caused a run to start.
type TriggerType string

const (
	TriggerManual    TriggerType = "manual"
	TriggerInterval  TriggerType = "interval"
	TriggerOnce      TriggerType = "once"
	TriggerScheduled TriggerType = "scheduled"
)

// Trigger describes the provenance of one run: the trigger type plus
// trigger-specific parameters (cron expression, fire time, timezone).
// Triggers are immutable once constructed.
type Trigger struct {
	triggerType TriggerType
	params      map[string]string
}

// NewTrigger creates a Trigger. The params map is copied so later
// mutation by the caller cannot affect the trigger.
func NewTrigger(triggerType TriggerType, params map[string]string) Trigger {
	copied := make(map[string]string, len(params))
	for k, v := range params {
		copied[k] = v
	}
	return Trigger{triggerType: triggerType, params: copied}
}

// Type returns the trigger type.
func (t Trigger) Type() TriggerType {
	return t.triggerType
}

// Param returns the named trigger parameter, or the empty string.
func (t Trigger) Param(key string) string {
	return t.params[key]
}

// Params returns a copy of all trigger parameters.
func (t Trigger) Params() map[string]string {
	out := make(map[string]string, len(t.params))
	for k, v := range t.params {
		out[k] = v
	}
	return out
}
