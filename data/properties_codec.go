package data

import (
	"github.com/bootphon/h5features-sub000/codec"
	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// encodedValue is the kind-tagged wire form of a property value, so that
// integers and floats keep their kind through text codecs.
type encodedValue struct {
	K string                  `json:"k"`
	B bool                    `json:"b,omitempty"`
	I int64                   `json:"i,omitempty"`
	F float64                 `json:"f,omitempty"`
	S string                  `json:"s,omitempty"`
	L []encodedValue          `json:"l,omitempty"`
	M map[string]encodedValue `json:"m,omitempty"`
}

// EncodeProperties serializes the per-item properties list of a group.
// Entries must already be normalized.
func EncodeProperties(c codec.Codec, list []Properties) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	wire := make([]map[string]encodedValue, len(list))
	for i, p := range list {
		m := make(map[string]encodedValue, len(p))
		for k, v := range p {
			ev, err := encodeValue(v)
			if err != nil {
				return nil, err
			}
			m[k] = ev
		}
		wire[i] = m
	}
	return c.Marshal(wire)
}

// DecodeProperties parses a blob written by EncodeProperties.
func DecodeProperties(c codec.Codec, blob []byte) ([]Properties, error) {
	if c == nil {
		c = codec.Default
	}
	if len(blob) == 0 {
		return nil, nil
	}
	var wire []map[string]encodedValue
	if err := c.Unmarshal(blob, &wire); err != nil {
		return nil, h5err.Wrap(err, h5err.KindCorrupt, "data.DecodeProperties", "properties blob (%s)", c.Name())
	}
	out := make([]Properties, len(wire))
	for i, m := range wire {
		p := make(Properties, len(m))
		for k, ev := range m {
			v, err := ev.decode()
			if err != nil {
				return nil, err
			}
			p[k] = v
		}
		out[i] = p
	}
	return out, nil
}

func encodeValue(v any) (encodedValue, error) {
	switch x := v.(type) {
	case bool:
		return encodedValue{K: "b", B: x}, nil
	case int64:
		return encodedValue{K: "i", I: x}, nil
	case float64:
		return encodedValue{K: "f", F: x}, nil
	case string:
		return encodedValue{K: "s", S: x}, nil
	case []any:
		l := make([]encodedValue, len(x))
		for i, item := range x {
			ev, err := encodeValue(item)
			if err != nil {
				return encodedValue{}, err
			}
			l[i] = ev
		}
		return encodedValue{K: "l", L: l}, nil
	case map[string]any:
		m := make(map[string]encodedValue, len(x))
		for k, item := range x {
			ev, err := encodeValue(item)
			if err != nil {
				return encodedValue{}, err
			}
			m[k] = ev
		}
		return encodedValue{K: "m", M: m}, nil
	default:
		return encodedValue{}, h5err.Invalid("data.EncodeProperties", "value of type %T is not normalized", v)
	}
}

func (ev encodedValue) decode() (any, error) {
	switch ev.K {
	case "b":
		return ev.B, nil
	case "i":
		return ev.I, nil
	case "f":
		return ev.F, nil
	case "s":
		return ev.S, nil
	case "l":
		out := make([]any, len(ev.L))
		for i, item := range ev.L {
			v, err := item.decode()
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case "m":
		out := make(map[string]any, len(ev.M))
		for k, item := range ev.M {
			v, err := item.decode()
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	default:
		return nil, h5err.New(h5err.KindCorrupt, "data.DecodeProperties", "unknown value kind %q", ev.K)
	}
}
