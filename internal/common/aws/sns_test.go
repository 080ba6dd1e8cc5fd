package aws

import (
	"context"
	"errors"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSNS struct {
	mock.Mock
}

func (m *mockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func TestSNSClient_Publish(t *testing.T) {
	api := &mockSNS{}
	api.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		attr, ok := in.MessageAttributes["searchStrategy"]
		return sdkaws.ToString(in.TopicArn) == "arn:aws:sns:us-east-1:123:comps" &&
			sdkaws.ToString(in.Subject) == "subject" &&
			sdkaws.ToString(in.Message) == `{"a":1}` &&
			ok && sdkaws.ToString(attr.StringValue) == "keywords_only" &&
			sdkaws.ToString(attr.DataType) == "String"
	})).Return(&sns.PublishOutput{MessageId: sdkaws.String("msg-1")}, nil)

	client := NewSNSClientWithAPI(api, "arn:aws:sns:us-east-1:123:comps")
	id, err := client.Publish(context.Background(), "subject", `{"a":1}`, map[string]string{"searchStrategy": "keywords_only"})

	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	api.AssertExpectations(t)
}

func TestSNSClient_Publish_NoSubjectOrAttributes(t *testing.T) {
	api := &mockSNS{}
	api.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return in.Subject == nil && in.MessageAttributes == nil
	})).Return(&sns.PublishOutput{}, nil)

	_, err := NewSNSClientWithAPI(api, "arn").Publish(context.Background(), "", "m", nil)
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestSNSClient_Publish_Error(t *testing.T) {
	api := &mockSNS{}
	api.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	_, err := NewSNSClientWithAPI(api, "arn").Publish(context.Background(), "s", "m", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
