package dynamodb

import (
	"encoding/json"
	"fmt"

	"tablegrid/domain/core/entities"
	"tablegrid/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// decodeItem converts a DynamoDB item into a row. Numbers come back as
// json.Number so they keep their precision and render as JSON numbers.
func decodeItem(item map[string]types.AttributeValue) (entities.Row, error) {
	var raw map[string]interface{}
	err := attributevalue.UnmarshalMapWithOptions(item, &raw, func(o *attributevalue.DecoderOptions) {
		o.UseNumber = true
	})
	if err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}

	row := make(entities.Row, len(raw))
	for k, v := range raw {
		row[k] = fromAttribute(v)
	}
	return row, nil
}

func fromAttribute(v interface{}) interface{} {
	switch val := v.(type) {
	case attributevalue.Number:
		return json.Number(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = fromAttribute(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			out[k] = fromAttribute(e)
		}
		return out
	default:
		return val
	}
}

// toAttribute prepares a cell value for attributevalue marshaling
func toAttribute(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		return attributevalue.Number(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = toAttribute(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			out[k] = toAttribute(e)
		}
		return out
	default:
		return val
	}
}

// encodeRow converts a row into a DynamoDB item with a string id key
func encodeRow(row entities.Row) (map[string]types.AttributeValue, error) {
	prepared := make(map[string]interface{}, len(row))
	for k, v := range row {
		prepared[k] = toAttribute(v)
	}
	prepared[valueobjects.IDColumn] = row.ID()

	item, err := attributevalue.MarshalMap(prepared)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	return item, nil
}

func keyFor(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		valueobjects.IDColumn: &types.AttributeValueMemberS{Value: id},
	}
}
