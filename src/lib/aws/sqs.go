package aws

import (
	"apaeventus/src/types"
	"context"
	"encoding/json"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type SQSSendMessageAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher announces fulfilled checkouts on a queue for downstream
// consumers.
type SQSPublisher struct {
	client   SQSSendMessageAPI
	queue    string
	queueURL *string
}

func NewSQSPublisher(client SQSSendMessageAPI, queue string) *SQSPublisher {
	return &SQSPublisher{client: client, queue: queue}
}

func (p *SQSPublisher) resolveQueueURL(ctx context.Context) (*string, error) {
	if p.queueURL != nil {
		return p.queueURL, nil
	}
	qurl, err := p.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(p.queue),
	})
	if err != nil {
		log.Printf("Failed to retrieve queue URL for %s: %s\n", p.queue, err.Error())
		return nil, err
	}
	p.queueURL = qurl.QueueUrl
	return p.queueURL, nil
}

func (p *SQSPublisher) PublishSaleFulfilled(ctx context.Context, msg types.SaleFulfilledMessage) error {
	qurl, err := p.resolveQueueURL(ctx)
	if err != nil {
		return err
	}
	body, err := json.Marshal(&msg)
	if err != nil {
		return err
	}
	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    qurl,
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"event": {
				DataType:    aws.String("String"),
				StringValue: aws.String("sale.fulfilled"),
			},
		},
	})
	if err != nil {
		log.Printf("Could not send message to queue: %s\n", err.Error())
		return err
	}
	log.Printf("Message sent to queue: %s\n", *out.MessageId)
	return nil
}
