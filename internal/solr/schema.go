package solr

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// FieldDefinition is the payload of a Schema API add-field command.
type FieldDefinition struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Indexed     bool   `json:"indexed"`
	Stored      bool   `json:"stored"`
	MultiValued bool   `json:"multiValued,omitempty"`
}

// AddFields adds field definitions to the managed schema of a collection.
func (c *Client) AddFields(ctx context.Context, name string, fields []FieldDefinition) error {
	if len(fields) == 0 {
		return nil
	}
	payload, err := json.Marshal(map[string][]FieldDefinition{"add-field": fields})
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	_, err = c.post(ctx, OpAddFields, name+"/schema", nil, "application/json", payload)
	return err
}

// GetSchema returns the schema definition of an index as raw JSON.
func (c *Client) GetSchema(ctx context.Context, name string) (json.RawMessage, error) {
	body, err := c.get(ctx, OpGetSchema, name+"/schema", nil)
	if err != nil {
		return nil, err
	}
	schema := gjson.GetBytes(body, "schema")
	if !schema.Exists() {
		return nil, &Error{Op: OpGetSchema, Err: ErrUnexpectedResponse}
	}
	return json.RawMessage(schema.Raw), nil
}
