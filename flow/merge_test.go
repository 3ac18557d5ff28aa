package flow

import (
	"testing"

	"github.com/agentloop/agentloop/core"
	"github.com/agentloop/agentloop/logging"
	"github.com/stretchr/testify/assert"
)

func TestMergeActions_LaterStateWins(t *testing.T) {
	merged := mergeActions(logging.NoOpLogger{}, []core.EventActions{
		{StateDelta: map[string]any{"k": "first", "only-a": 1}},
		{StateDelta: map[string]any{"k": "second", "only-b": 2}},
	})

	assert.Equal(t, "second", merged.StateDelta["k"])
	assert.Equal(t, 1, merged.StateDelta["only-a"])
	assert.Equal(t, 2, merged.StateDelta["only-b"])
}

func TestMergeActions_FirstTransferWins(t *testing.T) {
	merged := mergeActions(logging.NoOpLogger{}, []core.EventActions{
		{TransferToAgent: "Alpha"},
		{TransferToAgent: "Beta"},
		{TransferToAgent: "Alpha"},
	})
	assert.Equal(t, "Alpha", merged.TransferToAgent)
}

func TestMergeActions_FlagsAndConfirmations(t *testing.T) {
	merged := mergeActions(logging.NoOpLogger{}, []core.EventActions{
		{Escalate: true, RequestedToolConfirmations: []string{"c1"}},
		{SkipSummarization: true, RequestedToolConfirmations: []string{"c2"}},
		{},
	})

	assert.True(t, merged.Escalate)
	assert.True(t, merged.SkipSummarization)
	assert.Equal(t, []string{"c1", "c2"}, merged.RequestedToolConfirmations)
}

func TestMergeActions_ArtifactDelta(t *testing.T) {
	merged := mergeActions(logging.NoOpLogger{}, []core.EventActions{
		{ArtifactDelta: map[string]int{"f.txt": 1}},
		{ArtifactDelta: map[string]int{"f.txt": 2, "g.txt": 1}},
	})

	assert.Equal(t, 2, merged.ArtifactDelta["f.txt"])
	assert.Equal(t, 1, merged.ArtifactDelta["g.txt"])
}

func TestMergeActions_Empty(t *testing.T) {
	merged := mergeActions(logging.NoOpLogger{}, nil)
	assert.Empty(t, merged.StateDelta)
	assert.Empty(t, merged.TransferToAgent)
	assert.False(t, merged.Escalate)
}
