package processor

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"matchbook/internal/book"
)

// commandKind discriminates the three recognized command variants (spec
// §4.3).
type commandKind int

const (
	kindNewOrder commandKind = iota
	kindCancelOrder
	kindSnapshotRequest
)

func (k commandKind) String() string {
	switch k {
	case kindNewOrder:
		return "NewOrder"
	case kindCancelOrder:
		return "CancelOrder"
	case kindSnapshotRequest:
		return "SnapshotRequest"
	default:
		return "unknown"
	}
}

// command is a decoded, ready-to-apply instruction. Exactly one of the
// payload fields is meaningful, selected by kind.
type command struct {
	kind            commandKind
	order           book.Order
	cancelOrderID   uuid.UUID
	responseChannel string
}

type envelope struct {
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload"`
}

type newOrderPayload struct {
	ID        *uuid.UUID `json:"id"`
	UserID    uint64     `json:"user_id"`
	OrderType string     `json:"order_type"`
	Side      string     `json:"side"`
	Price     string     `json:"price"`
	Quantity  string     `json:"quantity"`
	Timestamp *time.Time `json:"timestamp"`
}

type cancelOrderPayload struct {
	OrderID uuid.UUID `json:"order_id"`
}

type snapshotRequestPayload struct {
	ResponseChannel string `json:"response_channel"`
}

// decodeCommand parses a raw broker payload into a command. Any failure —
// malformed JSON, an unknown discriminator, a malformed field — is an
// InvalidCommand (spec §7): the caller logs it with the raw payload and
// moves on without touching the book.
func decodeCommand(raw []byte) (command, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return command{}, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Command {
	case "NewOrder":
		return decodeNewOrder(env.Payload)
	case "CancelOrder":
		return decodeCancelOrder(env.Payload)
	case "SnapshotRequest":
		return decodeSnapshotRequest(env.Payload)
	default:
		return command{}, fmt.Errorf("unknown command discriminator %q", env.Command)
	}
}

func decodeNewOrder(raw json.RawMessage) (command, error) {
	var p newOrderPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return command{}, fmt.Errorf("decode NewOrder payload: %w", err)
	}

	side, err := decodeSide(p.Side)
	if err != nil {
		return command{}, err
	}
	orderType, err := decodeOrderType(p.OrderType)
	if err != nil {
		return command{}, err
	}

	quantity, err := decodeDecimal(p.Quantity)
	if err != nil {
		return command{}, fmt.Errorf("decode quantity: %w", err)
	}

	price, err := decodeDecimal(p.Price)
	if err != nil {
		return command{}, fmt.Errorf("decode price: %w", err)
	}

	order := book.Order{
		UserID:    p.UserID,
		OrderType: orderType,
		Side:      side,
		Price:     price,
		Quantity:  quantity,
	}
	if p.ID != nil {
		order.ID = *p.ID
	}
	if p.Timestamp != nil {
		order.Timestamp = *p.Timestamp
	}

	return command{kind: kindNewOrder, order: order}, nil
}

func decodeCancelOrder(raw json.RawMessage) (command, error) {
	var p cancelOrderPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return command{}, fmt.Errorf("decode CancelOrder payload: %w", err)
	}
	if p.OrderID == uuid.Nil {
		return command{}, fmt.Errorf("CancelOrder payload missing order_id")
	}
	return command{kind: kindCancelOrder, cancelOrderID: p.OrderID}, nil
}

func decodeSnapshotRequest(raw json.RawMessage) (command, error) {
	var p snapshotRequestPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return command{}, fmt.Errorf("decode SnapshotRequest payload: %w", err)
	}
	if p.ResponseChannel == "" {
		return command{}, fmt.Errorf("SnapshotRequest payload missing response_channel")
	}
	return command{kind: kindSnapshotRequest, responseChannel: p.ResponseChannel}, nil
}

func decodeSide(s string) (book.Side, error) {
	switch s {
	case "Buy":
		return book.Buy, nil
	case "Sell":
		return book.Sell, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}

func decodeOrderType(s string) (book.OrderType, error) {
	switch s {
	case "Limit":
		return book.LimitOrder, nil
	case "Market":
		return book.MarketOrder, nil
	default:
		return 0, fmt.Errorf("unknown order_type %q", s)
	}
}

func decodeDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
