package cachegrp

import "encoding/json"

type newEntry struct {
	Key      string          `json:"key" validate:"required"`
	Value    json.RawMessage `json:"value" validate:"required"`
	TTLMs    int64           `json:"ttl" validate:"gte=0"`
	Metadata map[string]any  `json:"metadata"`
}

type entry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}
