// Package plugin provides ready-made plugins for the invocation plugin chain.
package plugin

import (
	"github.com/agentloop/agentloop/core"
	"github.com/agentloop/agentloop/logging"
)

// NewLoggingPlugin returns a plugin that logs the invocation lifecycle:
// user messages, model calls, tool calls and their failures. It never alters
// the flow; every hook observes and passes through.
func NewLoggingPlugin(logger logging.Logger) *core.Plugin {
	logger = logging.OrNoOp(logger)
	return &core.Plugin{
		Name: "logging",
		OnUserMessage: func(ic *core.InvocationContext, content *core.Content) (*core.Content, error) {
			logger.Info("plugin.user_message", "invocation", ic.InvocationID, "length", len(content.Text()))
			return nil, nil
		},
		BeforeRun: func(ic *core.InvocationContext) (*core.Content, error) {
			logger.Info("plugin.run.start", "invocation", ic.InvocationID, "app", ic.AppName, "user", ic.UserID)
			return nil, nil
		},
		AfterRun: func(ic *core.InvocationContext) error {
			logger.Info("plugin.run.complete", "invocation", ic.InvocationID)
			return nil
		},
		BeforeModel: func(cc *core.CallbackContext, req *core.LlmRequest) (*core.LlmResponse, error) {
			logger.Debug("plugin.model.request", "agent", cc.AgentName(), "contents", len(req.Contents), "tools", len(req.Tools))
			return nil, nil
		},
		AfterModel: func(cc *core.CallbackContext, resp *core.LlmResponse) (*core.LlmResponse, error) {
			logger.Debug("plugin.model.response", "agent", cc.AgentName(), "finish_reason", resp.FinishReason)
			return nil, nil
		},
		OnModelError: func(cc *core.CallbackContext, req *core.LlmRequest, modelErr error) (*core.LlmResponse, error) {
			logger.Error("plugin.model.error", "agent", cc.AgentName(), "error", modelErr.Error())
			return nil, nil
		},
		BeforeTool: func(tc *core.ToolContext, tool core.Tool, args map[string]any) (map[string]any, error) {
			logger.Debug("plugin.tool.call", "tool", tool.Name(), "fc_id", tc.FunctionCallID)
			return nil, nil
		},
		OnToolError: func(tc *core.ToolContext, tool core.Tool, args map[string]any, toolErr error) (map[string]any, error) {
			logger.Error("plugin.tool.error", "tool", tool.Name(), "fc_id", tc.FunctionCallID, "error", toolErr.Error())
			return nil, nil
		},
	}
}
