package amqp

import (
	"encoding/json"
	"time"
)

// DatasetRefreshMessage announces a completed dataset refresh. Consumers that
// need the rows fetch them from the snapshot store; the message carries only
// the identity and shape of the refresh.
type DatasetRefreshMessage struct {
	Dataset   string    `json:"dataset"`
	Rows      int       `json:"rows"`
	FetchedAt time.Time `json:"fetched_at"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDatasetRefreshMessage(dataset string, rows int, fetchedAt time.Time) *DatasetRefreshMessage {
	return &DatasetRefreshMessage{
		Dataset:   dataset,
		Rows:      rows,
		FetchedAt: fetchedAt,
		Timestamp: time.Now(),
	}
}

func (m *DatasetRefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DatasetRefreshMessageFromJSON(data []byte) (*DatasetRefreshMessage, error) {
	var msg DatasetRefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
