package condition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// wireNode is the JSON shape shared with role editors:
//
//	{"type":"and","id":"..","values":[...]}
//	{"type":"not","id":"..","value":{...}}
//	{"type":"createdLessThan","id":"..","sec":86400}
//	{"type":"followersMoreThanOrEq","id":"..","value":1000}
type wireNode struct {
	Type   Kind            `json:"type"`
	ID     string          `json:"id,omitempty"`
	Values []Node          `json:"values,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
	Sec    *int64          `json:"sec,omitempty"`
}

// wireHead is the part of a node that is read even when the rest of it
// does not decode.
type wireHead struct {
	Type Kind   `json:"type"`
	ID   string `json:"id"`
}

// MarshalJSON implements json.Marshaler.
func (n Node) MarshalJSON() ([]byte, error) {
	if n.Malformed() {
		return append([]byte(nil), n.raw...), nil
	}
	if n.IsZero() {
		return []byte("null"), nil
	}
	w := wireNode{Type: n.Kind, ID: n.ID}
	switch {
	case n.Kind == KindAnd || n.Kind == KindOr:
		// An empty list still has to round-trip as a list.
		if len(n.Values) == 0 {
			return json.Marshal(struct {
				Type   Kind   `json:"type"`
				ID     string `json:"id,omitempty"`
				Values []Node `json:"values"`
			}{n.Kind, n.ID, []Node{}})
		}
		w.Values = n.Values
	case n.Kind == KindNot:
		if n.Operand != nil {
			raw, err := json.Marshal(n.Operand)
			if err != nil {
				return nil, err
			}
			w.Value = raw
		}
	case n.Kind == KindCreatedLessThan || n.Kind == KindCreatedMoreThan:
		sec := n.Sec
		w.Sec = &sec
	case n.Kind.counter():
		w.Value = json.RawMessage(fmt.Sprintf("%d", n.Threshold))
	default:
		w.Values = n.Values
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler. Unknown kinds decode without
// error so trees written by newer editors still load; they evaluate to false.
// A node whose body does not decode (a counter with a string value, a not
// with a scalar operand) is kept as a malformed node instead of failing the
// whole tree. It evaluates to false and marshals back to the bytes it was
// read from; Validate rejects it.
func (n *Node) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = Node{}
		return nil
	}
	if !json.Valid(data) {
		return errors.New("condition: decode node: invalid JSON")
	}

	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		*n = malformed(data)
		return nil
	}

	out := Node{Kind: w.Type, ID: w.ID, Values: w.Values}
	if w.Sec != nil {
		out.Sec = *w.Sec
	}

	if len(w.Value) > 0 {
		switch {
		case w.Type == KindNot:
			var operand Node
			if err := json.Unmarshal(w.Value, &operand); err != nil || operand.Malformed() {
				*n = malformed(data)
				return nil
			}
			out.Operand = &operand
		case w.Type.counter():
			if err := json.Unmarshal(w.Value, &out.Threshold); err != nil {
				*n = malformed(data)
				return nil
			}
		default:
			// Best effort for kinds we do not know.
			_ = json.Unmarshal(w.Value, &out.Threshold) //nolint:errcheck // unknown kinds never evaluate
		}
	}

	if (out.Kind == KindAnd || out.Kind == KindOr) && out.Values == nil {
		out.Values = []Node{}
	}
	*n = out
	return nil
}

func malformed(data []byte) Node {
	var h wireHead
	_ = json.Unmarshal(data, &h) //nolint:errcheck // the head is informational
	return Node{Kind: h.Type, ID: h.ID, raw: append([]byte(nil), data...)}
}
