package models

// Answer is the parsed provider response: one sentence, an optional verbatim
// quote, and the trailing bracketed citation tag when the provider emitted one.
// Answers are ephemeral; they are cached but never persisted.
type Answer struct {
	Sentence string `json:"sentence"`
	Quote    string `json:"quote,omitempty"`
	Citation string `json:"citation,omitempty"`
	Raw      string `json:"-"`
}
