package models

import (
	"database/sql/driver"
	"errors"

	"github.com/goccy/go-json"
)

// JSON stores a free-form document in a jsonb column.
type JSON map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(map[string]interface{}(j))
}

// Scan implements the sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("models: unsupported JSON column type")
	}
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*j = m
	return nil
}
