package filemeta

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// marshalVersionHeader appends the wire form of h to dst.
func marshalVersionHeader(dst []byte, h VersionHeader) []byte {
	dst = msgp.AppendMapHeader(dst, 7)
	dst = msgp.AppendString(dst, "ID")
	dst = msgp.AppendString(dst, h.VersionID)
	dst = msgp.AppendString(dst, "MTime")
	dst = msgp.AppendInt64(dst, h.ModTime)
	dst = msgp.AppendString(dst, "Sig")
	dst = msgp.AppendBytes(dst, h.Signature[:])
	dst = msgp.AppendString(dst, "Type")
	dst = msgp.AppendUint8(dst, uint8(h.Type))
	dst = msgp.AppendString(dst, "Flags")
	dst = msgp.AppendUint8(dst, uint8(h.Flags))
	dst = msgp.AppendString(dst, "EN")
	dst = msgp.AppendInt(dst, h.ErasureN)
	dst = msgp.AppendString(dst, "EM")
	dst = msgp.AppendInt(dst, h.ErasureM)
	return dst
}

func unmarshalVersionHeader(buf []byte) (VersionHeader, []byte, error) {
	var h VersionHeader
	n, buf, err := msgp.ReadMapHeaderBytes(buf)
	if err != nil {
		return h, buf, err
	}
	for i := uint32(0); i < n; i++ {
		var key string
		key, buf, err = msgp.ReadStringBytes(buf)
		if err != nil {
			return h, buf, err
		}
		switch key {
		case "ID":
			h.VersionID, buf, err = msgp.ReadStringBytes(buf)
		case "MTime":
			h.ModTime, buf, err = msgp.ReadInt64Bytes(buf)
		case "Sig":
			var sig []byte
			sig, buf, err = msgp.ReadBytesBytes(buf, nil)
			if err == nil {
				copy(h.Signature[:], sig)
			}
		case "Type":
			var t uint8
			t, buf, err = msgp.ReadUint8Bytes(buf)
			h.Type = VersionType(t)
		case "Flags":
			var f uint8
			f, buf, err = msgp.ReadUint8Bytes(buf)
			h.Flags = xlFlags(f)
		case "EN":
			h.ErasureN, buf, err = msgp.ReadIntBytes(buf)
		case "EM":
			h.ErasureM, buf, err = msgp.ReadIntBytes(buf)
		default:
			buf, err = msgp.Skip(buf)
		}
		if err != nil {
			return h, buf, err
		}
	}
	return h, buf, nil
}

func marshalStrBytesMap(dst []byte, m map[string][]byte) []byte {
	dst = msgp.AppendMapHeader(dst, uint32(len(m)))
	for k, v := range m {
		dst = msgp.AppendString(dst, k)
		dst = msgp.AppendBytes(dst, v)
	}
	return dst
}

func unmarshalStrBytesMap(buf []byte) (map[string][]byte, []byte, error) {
	n, buf, err := msgp.ReadMapHeaderBytes(buf)
	if err != nil {
		return nil, buf, err
	}
	m := make(map[string][]byte, n)
	for i := uint32(0); i < n; i++ {
		var k string
		var v []byte
		k, buf, err = msgp.ReadStringBytes(buf)
		if err != nil {
			return nil, buf, err
		}
		v, buf, err = msgp.ReadBytesBytes(buf, nil)
		if err != nil {
			return nil, buf, err
		}
		m[k] = v
	}
	return m, buf, nil
}

func marshalStrStrMap(dst []byte, m map[string]string) []byte {
	dst = msgp.AppendMapHeader(dst, uint32(len(m)))
	for k, v := range m {
		dst = msgp.AppendString(dst, k)
		dst = msgp.AppendString(dst, v)
	}
	return dst
}

func unmarshalStrStrMap(buf []byte) (map[string]string, []byte, error) {
	n, buf, err := msgp.ReadMapHeaderBytes(buf)
	if err != nil {
		return nil, buf, err
	}
	m := make(map[string]string, n)
	for i := uint32(0); i < n; i++ {
		var k, v string
		k, buf, err = msgp.ReadStringBytes(buf)
		if err != nil {
			return nil, buf, err
		}
		v, buf, err = msgp.ReadStringBytes(buf)
		if err != nil {
			return nil, buf, err
		}
		m[k] = v
	}
	return m, buf, nil
}

func marshalParts(dst []byte, parts []PartInfo) []byte {
	dst = msgp.AppendArrayHeader(dst, uint32(len(parts)))
	for _, p := range parts {
		dst = msgp.AppendMapHeader(dst, 4)
		dst = msgp.AppendString(dst, "N")
		dst = msgp.AppendInt(dst, p.Number)
		dst = msgp.AppendString(dst, "ETag")
		dst = msgp.AppendString(dst, p.ETag)
		dst = msgp.AppendString(dst, "Size")
		dst = msgp.AppendInt64(dst, p.Size)
		dst = msgp.AppendString(dst, "ASize")
		dst = msgp.AppendInt64(dst, p.ActualSize)
	}
	return dst
}

func unmarshalParts(buf []byte) ([]PartInfo, []byte, error) {
	n, buf, err := msgp.ReadArrayHeaderBytes(buf)
	if err != nil {
		return nil, buf, err
	}
	parts := make([]PartInfo, n)
	for i := uint32(0); i < n; i++ {
		fn, buf2, err := msgp.ReadMapHeaderBytes(buf)
		if err != nil {
			return nil, buf, err
		}
		buf = buf2
		var p PartInfo
		for j := uint32(0); j < fn; j++ {
			var key string
			key, buf, err = msgp.ReadStringBytes(buf)
			if err != nil {
				return nil, buf, err
			}
			switch key {
			case "N":
				p.Number, buf, err = msgp.ReadIntBytes(buf)
			case "ETag":
				p.ETag, buf, err = msgp.ReadStringBytes(buf)
			case "Size":
				p.Size, buf, err = msgp.ReadInt64Bytes(buf)
			case "ASize":
				p.ActualSize, buf, err = msgp.ReadInt64Bytes(buf)
			default:
				buf, err = msgp.Skip(buf)
			}
			if err != nil {
				return nil, buf, err
			}
		}
		parts[i] = p
	}
	return parts, buf, nil
}

func marshalErasure(dst []byte, e ErasureInfo) []byte {
	dst = msgp.AppendMapHeader(dst, 5)
	dst = msgp.AppendString(dst, "Algo")
	dst = msgp.AppendUint8(dst, uint8(e.Algorithm))
	dst = msgp.AppendString(dst, "M")
	dst = msgp.AppendInt(dst, e.M)
	dst = msgp.AppendString(dst, "N")
	dst = msgp.AppendInt(dst, e.N)
	dst = msgp.AppendString(dst, "Block")
	dst = msgp.AppendInt64(dst, e.BlockSize)
	dst = msgp.AppendString(dst, "Idx")
	dst = msgp.AppendInt(dst, e.Index)
	dst = msgp.AppendBytes(dst, e.Distribution)
	return dst
}

func unmarshalErasure(buf []byte) (ErasureInfo, []byte, error) {
	var e ErasureInfo
	n, buf, err := msgp.ReadMapHeaderBytes(buf)
	if err != nil {
		return e, buf, err
	}
	for i := uint32(0); i < n; i++ {
		var key string
		key, buf, err = msgp.ReadStringBytes(buf)
		if err != nil {
			return e, buf, err
		}
		switch key {
		case "Algo":
			var a uint8
			a, buf, err = msgp.ReadUint8Bytes(buf)
			e.Algorithm = ErasureAlgo(a)
		case "M":
			e.M, buf, err = msgp.ReadIntBytes(buf)
		case "N":
			e.N, buf, err = msgp.ReadIntBytes(buf)
		case "Block":
			e.BlockSize, buf, err = msgp.ReadInt64Bytes(buf)
		case "Idx":
			e.Index, buf, err = msgp.ReadIntBytes(buf)
		default:
			buf, err = msgp.Skip(buf)
		}
		if err != nil {
			return e, buf, err
		}
	}
	e.Distribution, buf, err = msgp.ReadBytesBytes(buf, nil)
	return e, buf, err
}

// marshalVersionPayload appends the full version payload (discriminated
// on v.Type) to dst.
func marshalVersionPayload(dst []byte, v Version) []byte {
	dst = msgp.AppendUint8(dst, uint8(v.Type))
	switch v.Type {
	case ObjectType:
		o := v.Object
		dst = msgp.AppendMapHeader(dst, 8)
		dst = msgp.AppendString(dst, "ID")
		dst = msgp.AppendString(dst, o.VersionID)
		dst = msgp.AppendString(dst, "DDir")
		dst = msgp.AppendString(dst, o.DataDir)
		dst = msgp.AppendString(dst, "MTime")
		dst = msgp.AppendInt64(dst, o.ModTime)
		dst = msgp.AppendString(dst, "Size")
		dst = msgp.AppendInt64(dst, o.Size)
		dst = msgp.AppendString(dst, "CSum")
		dst = msgp.AppendUint8(dst, uint8(o.ChecksumAlgo))
		dst = msgp.AppendString(dst, "EC")
		dst = marshalErasure(dst, o.Erasure)
		dst = msgp.AppendString(dst, "Parts")
		dst = marshalParts(dst, o.Parts)
		dst = msgp.AppendString(dst, "Sys")
		dst = marshalStrBytesMap(dst, o.MetaSys)
		dst = msgp.AppendString(dst, "User")
		dst = marshalStrStrMap(dst, o.MetaUser)
	case DeleteType:
		d := v.Delete
		dst = msgp.AppendMapHeader(dst, 3)
		dst = msgp.AppendString(dst, "ID")
		dst = msgp.AppendString(dst, d.VersionID)
		dst = msgp.AppendString(dst, "MTime")
		dst = msgp.AppendInt64(dst, d.ModTime)
		dst = msgp.AppendString(dst, "Sys")
		dst = marshalStrBytesMap(dst, d.MetaSys)
	case LegacyType:
		l := v.Legacy
		dst = msgp.AppendMapHeader(dst, 2)
		dst = msgp.AppendString(dst, "ID")
		dst = msgp.AppendString(dst, l.VersionID)
		dst = msgp.AppendString(dst, "MTime")
		dst = msgp.AppendInt64(dst, l.ModTime)
	}
	return dst
}

func unmarshalVersionPayload(buf []byte) (Version, []byte, error) {
	var v Version
	t, buf, err := msgp.ReadUint8Bytes(buf)
	if err != nil {
		return v, buf, err
	}
	v.Type = VersionType(t)

	n, buf, err := msgp.ReadMapHeaderBytes(buf)
	if err != nil {
		return v, buf, err
	}

	switch v.Type {
	case ObjectType:
		o := &ObjectVersion{}
		for i := uint32(0); i < n; i++ {
			var key string
			key, buf, err = msgp.ReadStringBytes(buf)
			if err != nil {
				return v, buf, err
			}
			switch key {
			case "ID":
				o.VersionID, buf, err = msgp.ReadStringBytes(buf)
			case "DDir":
				o.DataDir, buf, err = msgp.ReadStringBytes(buf)
			case "MTime":
				o.ModTime, buf, err = msgp.ReadInt64Bytes(buf)
			case "Size":
				o.Size, buf, err = msgp.ReadInt64Bytes(buf)
			case "CSum":
				var c uint8
				c, buf, err = msgp.ReadUint8Bytes(buf)
				o.ChecksumAlgo = ChecksumAlgo(c)
			case "EC":
				o.Erasure, buf, err = unmarshalErasure(buf)
			case "Parts":
				o.Parts, buf, err = unmarshalParts(buf)
			case "Sys":
				o.MetaSys, buf, err = unmarshalStrBytesMap(buf)
			case "User":
				o.MetaUser, buf, err = unmarshalStrStrMap(buf)
			default:
				buf, err = msgp.Skip(buf)
			}
			if err != nil {
				return v, buf, err
			}
		}
		v.Object = o
	case DeleteType:
		d := &DeleteMarkerVersion{}
		for i := uint32(0); i < n; i++ {
			var key string
			key, buf, err = msgp.ReadStringBytes(buf)
			if err != nil {
				return v, buf, err
			}
			switch key {
			case "ID":
				d.VersionID, buf, err = msgp.ReadStringBytes(buf)
			case "MTime":
				d.ModTime, buf, err = msgp.ReadInt64Bytes(buf)
			case "Sys":
				d.MetaSys, buf, err = unmarshalStrBytesMap(buf)
			default:
				buf, err = msgp.Skip(buf)
			}
			if err != nil {
				return v, buf, err
			}
		}
		v.Delete = d
	case LegacyType:
		l := &LegacyVersion{}
		for i := uint32(0); i < n; i++ {
			var key string
			key, buf, err = msgp.ReadStringBytes(buf)
			if err != nil {
				return v, buf, err
			}
			switch key {
			case "ID":
				l.VersionID, buf, err = msgp.ReadStringBytes(buf)
			case "MTime":
				l.ModTime, buf, err = msgp.ReadInt64Bytes(buf)
			default:
				buf, err = msgp.Skip(buf)
			}
			if err != nil {
				return v, buf, err
			}
		}
		v.Legacy = l
	default:
		return v, buf, fmt.Errorf("filemeta: unknown version type %d", t)
	}
	return v, buf, nil
}
