package port

import "errors"

var ErrInvalidText = errors.New("invalid text")

type FileReader interface {
	ReadFile(path string) (string, error)
}
