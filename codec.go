package blockingqueue

import (
	"bytes"
	"encoding/gob"
	"io"
)

// Serializer writes a value into the byte region of the excerpt currently
// being appended. w is the log segment's write cursor for that excerpt.
type Serializer[T any] func(value T, w io.Writer) error

// Deserializer reconstructs a value from the bytes of a committed excerpt.
type Deserializer[T any] func(data []byte) (T, error)

// gobSerializer and gobDeserializer are the defaults used when the caller
// supplies only one half of the codec pair, or neither: a generic
// encoding/gob reader/writer, playing the role spec.md §4.4 assigns to "a
// generic object reader/writer from the log segment's own mechanism".
// Because the queue is generic over T, gob already knows the concrete type
// on both ends and no gob.Register call is needed the way it would be for a
// bare interface{} default.
//
// Mismatched custom/default pairs are expected to surface as deserialization
// errors (CorruptState) — a gob decoder fed non-gob bytes, or bytes that
// don't describe T, fails to decode.
func gobSerializer[T any](value T, w io.Writer) error {
	return gob.NewEncoder(w).Encode(value)
}

func gobDeserializer[T any](data []byte) (T, error) {
	var value T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&value); err != nil {
		return value, err
	}
	return value, nil
}
