// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

package advisor

import "github.com/abdullahkazmii/financial-chatbot/pkg/core/api"

// action is what the run-loop does next for an observed run state.
type action int

const (
	// actionWait polls again after the poll interval.
	actionWait action = iota
	// actionExecuteTools executes the pending tool calls and submits outputs.
	actionExecuteTools
	// actionReturnText fetches the assistant's final message.
	actionReturnText
	// actionFail aborts the run with a diagnostic.
	actionFail
)

// next maps a run status to the loop's next action. It is free of I/O so the
// status handling can be tested exhaustively without a remote service.
//
// A requires_action run without tool calls is malformed and fails rather than
// spinning. Only queued and in_progress are worth another poll; any status
// this vocabulary does not know is terminal and fails with the status in the
// diagnostic.
func next(status api.RunStatus, hasToolCalls bool) action {
	switch status {
	case api.RunStatusRequiresAction:
		if hasToolCalls {
			return actionExecuteTools
		}
		return actionFail
	case api.RunStatusCompleted:
		return actionReturnText
	case api.RunStatusQueued, api.RunStatusInProgress:
		return actionWait
	default:
		// failed, cancelled, expired, or a status we do not know.
		return actionFail
	}
}
