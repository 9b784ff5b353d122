package qagen

import (
	"encoding/json"
	"fmt"
	"time"
)

// Pair is one generated question/answer pair. Metadata is attached after
// post-processing, identically for every pair of the same submission.
type Pair struct {
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Message is one utterance inside an exported conversation record.
type Message struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// Record is one raw conversation record. CRM exports carry the message list
// under the field 消息内容; "messages" is accepted as well.
type Record struct {
	Messages []Message
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		Messages []Message `json:"messages"`
		Exported []Message `json:"消息内容"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Messages = raw.Messages
	if len(r.Messages) == 0 {
		r.Messages = raw.Exported
	}
	return nil
}

// Result aggregates one generation run. The counts are cumulative across
// stages and satisfy PostProcessedCount <= FilteredCount <= GeneratedCount.
type Result struct {
	GeneratedCount     int    `json:"generated_count"`
	FilteredCount      int    `json:"filtered_count"`
	PostProcessedCount int    `json:"post_processed_count"`
	Total              int    `json:"total"`
	QAs                []Pair `json:"qas"`
}

// NewMetadata builds the default provenance record attached to generated
// pairs when the caller supplies none.
func NewMetadata(source string) map[string]any {
	return map[string]any{
		"source":   source,
		"datetime": time.Now().Format("2006-01-02 15:04:05"),
	}
}

// GenerateError wraps a transport fault from the generation completion call.
type GenerateError struct {
	Err error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("generate call: %v", e.Err)
}

func (e *GenerateError) Unwrap() error { return e.Err }

// FilterError wraps a transport fault from the filter stage.
type FilterError struct {
	Err error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter call: %v", e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }
