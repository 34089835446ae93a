package eventpubsub

import (
	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"

	"github.com/fundedsim/engine/src/models"
)

const (
	OrderStatusChangedEvent   = "OrderStatusChangedEvent"
	AccountStatusChangedEvent = "AccountStatusChangedEvent"
	SweepCompletedEvent       = "SweepCompletedEvent"
)

// Publisher is the notification seam between the engine and any consumer
// of state changes. The engine emits state; it never pushes notifications
// itself.
type Publisher interface {
	PublishOrderStatus(order *models.Order)
	PublishAccountStatus(account *models.Account)
}

// Bus fans events out in-process over EventBus.
type Bus struct {
	bus EventBus.Bus
}

func NewBus() *Bus {
	return &Bus{
		bus: EventBus.New(),
	}
}

func (b *Bus) PublishOrderStatus(order *models.Order) {
	b.bus.Publish(OrderStatusChangedEvent, order)
}

func (b *Bus) PublishAccountStatus(account *models.Account) {
	b.bus.Publish(AccountStatusChangedEvent, account)
}

func (b *Bus) Publish(topic string, event interface{}) {
	b.bus.Publish(topic, event)
}

func (b *Bus) Subscribe(topic string, callbackFn interface{}) error {
	if err := b.bus.SubscribeAsync(topic, callbackFn, false); err != nil {
		return err
	}

	log.Infof("Subscribed to topic %s", topic)
	return nil
}

// NopPublisher discards all events. Used by tests and by callers that do
// not consume notifications.
type NopPublisher struct{}

func (NopPublisher) PublishOrderStatus(*models.Order)     {}
func (NopPublisher) PublishAccountStatus(*models.Account) {}
