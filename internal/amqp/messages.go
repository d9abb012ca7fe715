package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"bankdash/internal/core"
)

// TransferCompletedMessage announces a committed transfer. Amount travels in
// cents so consumers never parse decimals.
type TransferCompletedMessage struct {
	TransferID    string    `json:"transferId"`
	FromAccountID string    `json:"fromAccountId"`
	ToAccountID   string    `json:"toAccountId"`
	AmountCents   int64     `json:"amountCents"`
	Date          time.Time `json:"date"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransferCompletedMessage(t core.Transfer) *TransferCompletedMessage {
	return &TransferCompletedMessage{
		TransferID:    t.ID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		AmountCents:   t.Amount.Cents,
		Date:          t.Date.Time,
		Status:        string(t.Status),
		Timestamp:     time.Now(),
	}
}

// Transfer converts the message back to the domain type.
func (m *TransferCompletedMessage) Transfer() core.Transfer {
	return core.Transfer{
		ID:            m.TransferID,
		FromAccountID: m.FromAccountID,
		ToAccountID:   m.ToAccountID,
		Amount:        core.Cents(m.AmountCents),
		Date:          core.NewTimestamp(m.Date),
		Status:        core.TransferStatus(m.Status),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransferCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransferCompletedMessageFromJSON parses and validates a message body
func TransferCompletedMessageFromJSON(data []byte) (*TransferCompletedMessage, error) {
	var msg TransferCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TransferID == "" || msg.FromAccountID == "" || msg.ToAccountID == "" {
		return nil, fmt.Errorf("incomplete transfer message")
	}
	if msg.AmountCents <= 0 {
		return nil, fmt.Errorf("invalid transfer amount %d", msg.AmountCents)
	}
	return &msg, nil
}
