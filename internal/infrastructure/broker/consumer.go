package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// VendorAck mensaje de confirmación enviado por el proveedor.
type VendorAck struct {
	RequestID string `json:"request_id"`
	VendorID  string `json:"vendor_id"`
}

// Acknowledger aplica la confirmación sobre el flujo de reposición.
type Acknowledger interface {
	AcknowledgeFromVendor(ctx context.Context, requestID, vendorID string) (*entity.ReorderRequest, error)
}

// MessageHandler procesa un mensaje. Un error deja el offset sin confirmar.
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// Consumer lector de un grupo de consumo.
type Consumer struct {
	reader *kafka.Reader
	log    zerolog.Logger
}

// NewConsumer crea el lector Kafka del tópico para el grupo.
func NewConsumer(brokers []string, topic, groupID string, log zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
	return &Consumer{reader: reader, log: log.With().Str("component", "kafka-consumer").Str("topic", topic).Logger()}
}

// Run consume hasta que ctx se cancele. Solo confirma offsets de mensajes procesados.
func (c *Consumer) Run(ctx context.Context, handler MessageHandler) error {
	c.log.Info().Msg("consumidor iniciado")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info().Msg("consumidor detenido")
				return ctx.Err()
			}
			c.log.Error().Err(err).Msg("error leyendo mensaje")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		if err := handler(ctx, msg); err != nil {
			c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("error procesando mensaje")
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("error confirmando offset")
		}
	}
}

// Close cierra el lector.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// VendorAckHandler aplica confirmaciones de proveedor. Los mensajes mal formados o
// rechazados por el dominio se descartan (se confirman) para no bloquear la partición;
// los errores reintentables o de infraestructura se devuelven.
func VendorAckHandler(acks Acknowledger, log zerolog.Logger) MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var ack VendorAck
		if err := json.Unmarshal(msg.Value, &ack); err != nil || ack.RequestID == "" || ack.VendorID == "" {
			log.Warn().Int64("offset", msg.Offset).Msg("confirmación de proveedor inválida, descartada")
			return nil
		}
		req, err := acks.AcknowledgeFromVendor(ctx, ack.RequestID, ack.VendorID)
		switch {
		case err == nil:
			log.Info().Str("request_id", req.ID).Str("vendor_id", ack.VendorID).Msg("pedido confirmado por proveedor")
			return nil
		case errors.Is(err, domain.ErrInvalidStateTransition),
			errors.Is(err, domain.ErrNotFound),
			errors.Is(err, domain.ErrForbidden),
			errors.Is(err, domain.ErrUnauthorized):
			log.Warn().Err(err).Str("request_id", ack.RequestID).Str("vendor_id", ack.VendorID).Msg("confirmación rechazada, descartada")
			return nil
		default:
			return fmt.Errorf("acknowledge %s: %w", ack.RequestID, err)
		}
	}
}
