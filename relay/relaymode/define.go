package relaymode

const (
	Unknown = iota
	ChatCompletions
	Embeddings
)
