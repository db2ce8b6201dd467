package service

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IPublisherService is the in-process event bus facade. Subscribing services
// react to topics like CONVERSATION_CREATED without the publisher knowing
// about them.
type IPublisherService interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

type publisherService struct {
	pubSub *gochannel.GoChannel
}

func NewPublisherService(pubSub *gochannel.GoChannel) IPublisherService {
	return &publisherService{
		pubSub: pubSub,
	}
}

func (p *publisherService) Publish(ctx context.Context, topic string, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.pubSub.Publish(topic, msg)
}
