package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Ref is a reference to another entity supplied by a client. The wire
// form is either a bare identifier (number or decimal string) or an
// embedded object carrying an "id" field; both normalize to a plain
// identifier here, at the decoding boundary.
type Ref struct {
	ID int64
}

// UnmarshalJSON accepts 3, "3", and {"id": 3, ...} / {"id": "3", ...}.
func (r *Ref) UnmarshalJSON(data []byte) error {
	id, err := decodeRefID(data)
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// MarshalJSON emits the identifier as a decimal string.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(r.ID, 10))
}

// RefList is a list of references in either wire form.
type RefList []Ref

// IDs flattens the list to plain identifiers.
func (l RefList) IDs() []int64 {
	ids := make([]int64, 0, len(l))
	for _, r := range l {
		ids = append(ids, r.ID)
	}
	return ids
}

func decodeRefID(data []byte) (int64, error) {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return 0, err
	}
	switch v := raw.(type) {
	case json.Number:
		return parseRefNumber(v)
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("reference id %q is not an integer", v)
		}
		return id, nil
	case map[string]any:
		inner, ok := v["id"]
		if !ok {
			return 0, fmt.Errorf("reference object missing id field")
		}
		switch iv := inner.(type) {
		case json.Number:
			return parseRefNumber(iv)
		case string:
			id, err := strconv.ParseInt(iv, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("reference id %q is not an integer", iv)
			}
			return id, nil
		default:
			return 0, fmt.Errorf("reference id must be an integer or string")
		}
	default:
		return 0, fmt.Errorf("reference must be an id or an object with an id field")
	}
}

func parseRefNumber(n json.Number) (int64, error) {
	id, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("reference id %s is not an integer", n)
	}
	return id, nil
}
