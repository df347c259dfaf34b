package model

import (
	"encoding/json"

	"github.com/Laisky/errors/v2"
)

// Tool represents a tool definition or a tool call, depending on direction:
// request tools carry a Function with a parameters schema, response
// tool_calls carry a Function with arguments.
type Tool struct {
	Id       string    `json:"id,omitempty"`
	Type     string    `json:"type,omitempty"` // may be empty when splicing streamed tool-call deltas
	Function *Function `json:"function,omitempty"`
	// Index identifies which tool call the delta belongs to in streaming
	// responses.
	Index *int `json:"index,omitempty"`
}

// Function holds the schema (requests) or the arguments (responses) of one
// tool function.
type Function struct {
	Description string `json:"description,omitempty"`
	Name        string `json:"name,omitempty"` // may be empty on streamed argument deltas
	Parameters  any    `json:"parameters,omitempty"`
	Arguments   any    `json:"arguments,omitempty"`
}

// ArgumentsString renders the function arguments as a JSON string, the form
// the OpenAI schema expects on responses.
func (f *Function) ArgumentsString() (string, error) {
	switch v := f.Arguments.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", errors.Wrap(err, "marshal tool arguments")
		}
		return string(data), nil
	}
}

// Validate checks a request-side tool declaration.
func (t *Tool) Validate() error {
	if t.Type != "" && t.Type != "function" {
		return errors.Errorf("unsupported tool type %q", t.Type)
	}
	if t.Function == nil {
		return errors.New("function tool requires function definition")
	}
	if t.Function.Name == "" {
		return errors.New("function name is required")
	}
	return nil
}
