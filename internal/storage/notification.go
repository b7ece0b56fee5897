package storage

import (
	"encoding/json"
	"fmt"
)

// ObjectKeys extracts object keys from a storage event notification document,
// in record order. This is the payload the store emits when an artifact is
// written, and the reconcile entrypoint accepts it directly.
func ObjectKeys(notification []byte) ([]string, error) {
	var event struct {
		Records []struct {
			S3 struct {
				Object struct {
					Key string `json:"key"`
				} `json:"object"`
			} `json:"s3"`
		} `json:"Records"`
	}
	if err := json.Unmarshal(notification, &event); err != nil {
		return nil, fmt.Errorf("storage: decode event notification: %w", err)
	}

	keys := make([]string, 0, len(event.Records))
	for _, record := range event.Records {
		if record.S3.Object.Key == "" {
			continue
		}
		keys = append(keys, record.S3.Object.Key)
	}
	return keys, nil
}
