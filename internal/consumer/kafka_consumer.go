package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fulfillment-service/internal/dto"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/service"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// PickRequestMessage: пакет позиций заказов от order-service. Формат совпадает
// с телом POST /api/v1/pick-lists.
type PickRequestMessage = dto.CreatePickListRequest

// PickListCreator: часть FulfillmentService, нужная консьюмеру.
type PickListCreator interface {
	CreatePickList(ctx context.Context, items []service.PickOrderItem, warehouseID uuid.UUID, pickType models.PickType, opts service.PickListOptions) (*service.PickListResult, error)
}

var errInvalidMessage = errors.New("invalid pick request message")

type KafkaPickRequestConsumer struct {
	reader  *kafka.Reader
	creator PickListCreator
	log     *zap.Logger
}

func NewKafkaPickRequestConsumer(brokers []string, groupID, topic string, creator PickListCreator, log *zap.Logger) *KafkaPickRequestConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		MinBytes:          10e3,
		MaxBytes:          10e6,
		CommitInterval:    time.Second,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	})
	return &KafkaPickRequestConsumer{reader: r, creator: creator, log: log}
}

// Handle разбирает одно сообщение и создаёт по нему пик-лист.
// Ошибки формата и ErrNoPickableItems не повторяются: сообщение просто пропускается.
func (c *KafkaPickRequestConsumer) Handle(ctx context.Context, value []byte) (*service.PickListResult, error) {
	var msg PickRequestMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidMessage, err)
	}
	if msg.WarehouseID == uuid.Nil || len(msg.Items) == 0 {
		return nil, fmt.Errorf("%w: warehouse_id and items are required", errInvalidMessage)
	}
	pickType := models.PickType(msg.PickType)
	if pickType == "" {
		pickType = models.PickBatch
	}
	return c.creator.CreatePickList(ctx, msg.OrderItems(), msg.WarehouseID, pickType, msg.Options())
}

func (c *KafkaPickRequestConsumer) Run(ctx context.Context) error {
	c.log.Info("kafka pick request consumer started")
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Error("read message", zap.Error(err))
			continue
		}
		res, err := c.Handle(ctx, m.Value)
		switch {
		case errors.Is(err, errInvalidMessage):
			c.log.Error("invalid pick request", zap.ByteString("value", m.Value), zap.Error(err))
		case errors.Is(err, service.ErrNoPickableItems):
			c.log.Warn("pick request has nothing to pick", zap.ByteString("key", m.Key))
		case err != nil:
			c.log.Error("create pick list failed", zap.ByteString("key", m.Key), zap.Error(err))
		default:
			c.log.Info("pick list created from request",
				zap.String("pick_list_id", res.PickList.ID.String()),
				zap.Int("items", len(res.PickList.Items)),
				zap.Strings("warnings", res.Warnings))
		}
	}
}

func (c *KafkaPickRequestConsumer) Close() error { return c.reader.Close() }
