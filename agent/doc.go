// Package agent implements the plan, act, verify, repair loop that drives
// a chat model against a sandboxed workspace.
//
// A Session owns one conversation with the model. Each iteration the model
// returns a structured response (status, plan, actions, verify commands);
// the session dispatches the actions through policy and secret gates,
// tracks every file write for rollback, runs the verify commands, and
// feeds the results back into the conversation. Progress surfaces as typed
// events on a non-blocking emitter so the host UI never stalls the loop.
package agent
