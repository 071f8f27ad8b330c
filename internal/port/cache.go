package port

import "tokcount/internal/domain"

type CountCache interface {
	Get(encoding, text string) (domain.Count, bool, error)

	Put(encoding, text string, count domain.Count) error
}
