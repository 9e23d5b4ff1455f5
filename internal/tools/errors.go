package tools

import "errors"

// Failure kinds absorbed by the Executor. None of them escapes as a Go
// error; each becomes a JSON error payload the model can read.
var (
	ErrArgumentParse = errors.New("failed to parse tool arguments")
	ErrUnknownTool   = errors.New("unknown tool")
	ErrToolExecution = errors.New("tool execution failed")
)
