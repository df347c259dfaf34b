package model

import "encoding/json"

// Message is one entry of the role-tagged conversation. Content is either a
// plain string or an ordered list of typed parts (text, image).
type Message struct {
	Role    string  `json:"role,omitempty"`
	Content any     `json:"content,omitempty"`
	Name    *string `json:"name,omitempty"`
	// ToolCalls carries assistant-side tool invocations, both in requests
	// (conversation history) and in responses.
	ToolCalls []Tool `json:"tool_calls,omitempty"`
	// ToolCallId links a role=tool message back to the call it answers.
	ToolCallId string `json:"tool_call_id,omitempty"`
	// ReasoningContent surfaces model reasoning deltas for families that
	// emit them.
	ReasoningContent *string `json:"reasoning_content,omitempty"`
	// CacheControl passes prompt-cache hints through to families that
	// support them. Forwarded only when prompt caching is enabled.
	CacheControl json.RawMessage `json:"cache_control,omitempty"`
}

// Content part types.
const (
	ContentTypeText     = "text"
	ContentTypeImageURL = "image_url"
)

// MessageContent is one typed part of a multi-part message content.
type MessageContent struct {
	Type     string    `json:"type,omitempty"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references image content, either an HTTP(S) URL or a data URI.
type ImageURL struct {
	Url    string `json:"url,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// IsStringContent reports whether the content is a plain string.
func (m Message) IsStringContent() bool {
	_, ok := m.Content.(string)
	return ok
}

// StringContent flattens the message content to plain text. Image parts are
// skipped; text parts are concatenated in order.
func (m Message) StringContent() string {
	content, ok := m.Content.(string)
	if ok {
		return content
	}
	contentList, ok := m.Content.([]any)
	if !ok {
		return ""
	}

	var contentStr string
	for _, contentItem := range contentList {
		contentMap, ok := contentItem.(map[string]any)
		if !ok {
			continue
		}
		if contentMap["type"] == ContentTypeText {
			if subStr, ok := contentMap["text"].(string); ok {
				contentStr += subStr
			}
		}
	}
	return contentStr
}

// ParseContent normalizes the content field into an ordered part list.
func (m Message) ParseContent() []MessageContent {
	var contentList []MessageContent
	content, ok := m.Content.(string)
	if ok {
		contentList = append(contentList, MessageContent{
			Type: ContentTypeText,
			Text: content,
		})
		return contentList
	}

	anyList, ok := m.Content.([]any)
	if !ok {
		return contentList
	}
	for _, contentItem := range anyList {
		contentMap, ok := contentItem.(map[string]any)
		if !ok {
			continue
		}
		switch contentMap["type"] {
		case ContentTypeText:
			if subStr, ok := contentMap["text"].(string); ok {
				contentList = append(contentList, MessageContent{
					Type: ContentTypeText,
					Text: subStr,
				})
			}
		case ContentTypeImageURL:
			if subObj, ok := contentMap["image_url"].(map[string]any); ok {
				url, _ := subObj["url"].(string)
				detail, _ := subObj["detail"].(string)
				contentList = append(contentList, MessageContent{
					Type:     ContentTypeImageURL,
					ImageURL: &ImageURL{Url: url, Detail: detail},
				})
			}
		}
	}
	return contentList
}
