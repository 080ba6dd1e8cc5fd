// Package notify announces finished comparable searches on an SNS topic.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"comps-workers/internal/comps"
)

const subject = "comps.search.completed"

// Publisher is satisfied by aws.SNSClient.
type Publisher interface {
	Publish(ctx context.Context, subject, message string, attributes map[string]string) (string, error)
}

// Message is the notification body. Listings are left out; consumers fetch
// them from history or the archive by search ID.
type Message struct {
	SearchID       string   `json:"searchId"`
	Keywords       []string `json:"keywords"`
	BrandName      string   `json:"brandName,omitempty"`
	ModelNumber    string   `json:"modelNumber,omitempty"`
	SearchStrategy string   `json:"searchStrategy"`
	SearchKeywords []string `json:"searchKeywords"`
	comps.PriceStats
}

// Sink publishes every finished search except those without results.
type Sink struct {
	publisher Publisher
}

func NewSink(p Publisher) *Sink {
	return &Sink{publisher: p}
}

func (s *Sink) Name() string { return "sns" }

func (s *Sink) Record(ctx context.Context, result *comps.SearchResult) error {
	if result.TotalFound == 0 {
		return nil
	}

	body, err := json.Marshal(Message{
		SearchID:       result.SearchID,
		Keywords:       result.Request.Keywords,
		BrandName:      result.Request.BrandName,
		ModelNumber:    result.Request.ModelNumber,
		SearchStrategy: result.SearchStrategy,
		SearchKeywords: result.SearchKeywords,
		PriceStats:     result.PriceStats,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	_, err = s.publisher.Publish(ctx, subject, string(body), map[string]string{
		"searchStrategy": result.SearchStrategy,
	})
	return err
}
