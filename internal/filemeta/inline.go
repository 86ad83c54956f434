package filemeta

import "github.com/tinylib/msgp/msgp"

// InlineData is the keyed map from version_id string to raw bytes
// attached after the CRC in an xl.meta buffer (spec.md §3). Inline data
// for a version id is authoritative and preempts any shard I/O for
// that version.
type InlineData map[string][]byte

const inlineDataVersion = byte(1)

// encodeInlineData renders data as [version_byte][serialized_map].
func encodeInlineData(data InlineData) []byte {
	dst := []byte{inlineDataVersion}
	dst = msgp.AppendMapHeader(dst, uint32(len(data)))
	for k, v := range data {
		dst = msgp.AppendString(dst, k)
		dst = msgp.AppendBytes(dst, v)
	}
	return dst
}

// decodeInlineData parses the inline-data blob trailing the CRC.
func decodeInlineData(buf []byte) (InlineData, error) {
	if len(buf) == 0 {
		return InlineData{}, nil
	}
	if buf[0] != inlineDataVersion {
		return InlineData{}, nil
	}
	m, _, err := unmarshalStrBytesMap(buf[1:])
	if err != nil {
		return nil, err
	}
	out := make(InlineData, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, nil
}

// Replace sets the inline payload for versionID, or removes it when
// payload is nil.
func (d InlineData) Replace(versionID string, payload []byte) {
	if payload == nil {
		delete(d, versionID)
		return
	}
	d[versionID] = payload
}
