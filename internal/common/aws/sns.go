// internal/common/aws/sns.go
package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the subset of the SNS client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient publishes JSON messages to a single topic.
type SNSClient struct {
	api      SNSAPI
	topicARN string
}

func NewSNSClient(ctx context.Context, region, topicARN string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSNSClientWithAPI(sns.NewFromConfig(cfg), topicARN), nil
}

func NewSNSClientWithAPI(api SNSAPI, topicARN string) *SNSClient {
	return &SNSClient{api: api, topicARN: topicARN}
}

// Publish sends message with string attributes and returns the message ID.
func (s *SNSClient) Publish(ctx context.Context, subject, message string, attributes map[string]string) (string, error) {
	input := &sns.PublishInput{
		TopicArn: sdkaws.String(s.topicARN),
		Message:  sdkaws.String(message),
	}
	if subject != "" {
		input.Subject = sdkaws.String(subject)
	}
	if len(attributes) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attributes))
		for k, v := range attributes {
			input.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    sdkaws.String("String"),
				StringValue: sdkaws.String(v),
			}
		}
	}

	out, err := s.api.Publish(ctx, input)
	if err != nil {
		return "", fmt.Errorf("sns publish: %w", err)
	}
	return sdkaws.ToString(out.MessageId), nil
}
