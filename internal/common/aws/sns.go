package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNS subjects are limited to 100 characters.
const maxSubjectLength = 100

// SNSAPI is the subset of the SNS client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func NewSNS(cfg awssdk.Config) *sns.Client {
	return sns.NewFromConfig(cfg)
}

// TopicPublisher publishes messages to one SNS topic.
type TopicPublisher struct {
	api      SNSAPI
	topicARN string
}

func NewTopicPublisher(api SNSAPI, topicARN string) *TopicPublisher {
	return &TopicPublisher{api: api, topicARN: topicARN}
}

// Publish sends message with string attributes and returns the message ID.
func (p *TopicPublisher) Publish(ctx context.Context, subject, message string, attributes map[string]string) (string, error) {
	if len(subject) > maxSubjectLength {
		subject = subject[:maxSubjectLength]
	}

	input := &sns.PublishInput{
		TopicArn: awssdk.String(p.topicARN),
		Subject:  awssdk.String(subject),
		Message:  awssdk.String(message),
	}
	if len(attributes) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attributes))
		for k, v := range attributes {
			input.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String(v),
			}
		}
	}

	out, err := p.api.Publish(ctx, input)
	if err != nil {
		return "", err
	}
	return awssdk.ToString(out.MessageId), nil
}
