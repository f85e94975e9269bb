package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// CategoryChangedMessage announces a user re-categorization. Description
// is filled when the publisher could resolve it; consumers look it up
// otherwise.
type CategoryChangedMessage struct {
	TransactionID string    `json:"transaction_id"`
	Category      string    `json:"category"`
	Description   string    `json:"description,omitempty"`
	Learn         bool      `json:"learn"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewCategoryChangedMessage(transactionID, category, description string, learn bool) *CategoryChangedMessage {
	return &CategoryChangedMessage{
		TransactionID: transactionID,
		Category:      category,
		Description:   description,
		Learn:         learn,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *CategoryChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func CategoryChangedMessageFromJSON(data []byte) (*CategoryChangedMessage, error) {
	var msg CategoryChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TransactionID == "" || msg.Category == "" {
		return nil, errors.New("category changed message missing transaction id or category")
	}
	return &msg, nil
}
