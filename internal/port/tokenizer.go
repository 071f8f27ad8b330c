package port

import "errors"

var ErrUnknownEncoding = errors.New("unknown encoding")

type Encoder interface {
	Name() string

	Encode(text string) []int
}

type EncodingProvider interface {
	Resolve(name string) (Encoder, error)
}
