package flow

import (
	"github.com/agentloop/agentloop/core"
	"github.com/agentloop/agentloop/logging"
)

// mergeActions combines the actions of a batch of parallel calls into one
// bundle, in call order:
//   - StateDelta / ArtifactDelta: later calls win on key conflicts, with a
//     warning per overwritten key
//   - TransferToAgent: the first requested target wins; later differing
//     targets are dropped with a warning
//   - Escalate / SkipSummarization: true if any call set them
//   - RequestedToolConfirmations: concatenated
func mergeActions(logger logging.Logger, actions []core.EventActions) core.EventActions {
	var merged core.EventActions
	for _, a := range actions {
		for k, v := range a.StateDelta {
			if merged.StateDelta == nil {
				merged.StateDelta = map[string]any{}
			}
			if _, exists := merged.StateDelta[k]; exists {
				logger.Warn("flow.merge.state_conflict", "key", k)
			}
			merged.StateDelta[k] = v
		}
		for k, v := range a.ArtifactDelta {
			if merged.ArtifactDelta == nil {
				merged.ArtifactDelta = map[string]int{}
			}
			if _, exists := merged.ArtifactDelta[k]; exists {
				logger.Warn("flow.merge.artifact_conflict", "filename", k)
			}
			merged.ArtifactDelta[k] = v
		}
		if a.TransferToAgent != "" {
			if merged.TransferToAgent == "" {
				merged.TransferToAgent = a.TransferToAgent
			} else if merged.TransferToAgent != a.TransferToAgent {
				logger.Warn("flow.merge.transfer_conflict",
					"kept", merged.TransferToAgent, "dropped", a.TransferToAgent)
			}
		}
		merged.Escalate = merged.Escalate || a.Escalate
		merged.SkipSummarization = merged.SkipSummarization || a.SkipSummarization
		merged.RequestedToolConfirmations = append(merged.RequestedToolConfirmations, a.RequestedToolConfirmations...)
	}
	return merged
}
