package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"pdfqa/internal/models"
)

// systemInstruction pins the answer contract: one sentence, a verbatim quote,
// and a trailing bracketed citation tag.
const systemInstruction = `You are a retrieval-first assistant for PDF documents attached via file search.

Treat retrieved passages as ground truth.

ANSWER FORMAT & CITATION RULES
- Return EXACTLY ONE sentence; concise and precise.
- Include one short verbatim quote from the passage in double quotes ("like this").
- End the sentence with one citation tag in the form [<filename> p.<page> §<section>].
  * Use the filename reported by file search (no path).
  * If page/section are unknown, use p.— and §—.
- Never invent page/section/quotes; if nothing relevant is found, output exactly:
  ` + NoEvidenceSentinel

// NoEvidenceSentinel is the exact text the provider must emit when retrieval
// finds nothing relevant.
const NoEvidenceSentinel = "No direct evidence found in the provided files."

type queryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type queryTool struct {
	Type           string   `json:"type"`
	VectorStoreIDs []string `json:"vector_store_ids"`
}

type queryRequest struct {
	Model string         `json:"model"`
	Input []queryMessage `json:"input"`
	Tools []queryTool    `json:"tools"`
}

type queryResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// outputText collects the text blocks of a response.
func (r *queryResponse) outputText() string {
	var b strings.Builder
	for _, block := range r.Output {
		if block.Type != "message" {
			continue
		}
		for _, c := range block.Content {
			if c.Type == "output_text" {
				b.WriteString(c.Text)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Ask submits a question against the store with the fixed citation
// instruction and parses the textual response. The round trip is a single
// blocking call; cancellation past this point abandons the result, nothing
// more.
func (c *Client) Ask(ctx context.Context, storeID, question string) (*models.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", ErrNoAnswer)
	}

	req := queryRequest{
		Model: c.model,
		Input: []queryMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: question},
		},
		Tools: []queryTool{{Type: "file_search", VectorStoreIDs: []string{storeID}}},
	}

	var resp queryResponse
	if err := c.doJSON(ctx, http.MethodPost, "/responses", req, &resp); err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}

	text := resp.outputText()
	if text == "" || text == NoEvidenceSentinel {
		return nil, ErrNoAnswer
	}

	answer := ParseAnswer(text)
	return &answer, nil
}
