package domain

// ToolResult is the normalized outcome of one tool call. It always maps to a
// single text content block.
type ToolResult struct {
	Text    string
	IsError bool

	// StatusCode is 0 when no upstream response was obtained.
	StatusCode int
}

// ErrorResult builds an error result carrying only a message.
func ErrorResult(text string) ToolResult {
	return ToolResult{Text: text, IsError: true}
}
