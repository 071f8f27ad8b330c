package usecase

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"tokcount/internal/adapter/encoding"
	"tokcount/internal/adapter/fs"
	"tokcount/internal/domain"
	"tokcount/internal/port"
)

// CountUseCase counts tokens in strings and files.
type CountUseCase struct {
	provider port.EncodingProvider
	reader   port.FileReader
	cache    port.CountCache
	logger   *zap.Logger
}

// NewCountUseCase creates a new count use case. cache may be nil.
func NewCountUseCase(
	provider port.EncodingProvider,
	reader port.FileReader,
	cache port.CountCache,
	logger *zap.Logger,
) *CountUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CountUseCase{
		provider: provider,
		reader:   reader,
		cache:    cache,
		logger:   logger,
	}
}

// FromString returns the number of tokens in text under encodingName.
func (u *CountUseCase) FromString(text, encodingName string) (int, error) {
	enc, err := u.provider.Resolve(encodingName)
	if err != nil {
		return 0, err
	}
	return u.count(enc, "", text).Tokens, nil
}

// FromFile returns the number of tokens in the file at path.
func (u *CountUseCase) FromFile(path, encodingName string) (int, error) {
	c, err := u.CountFile(path, encodingName)
	if err != nil {
		return 0, err
	}
	return c.Tokens, nil
}

// CountFile counts the file at path and returns the full result.
// The encoding is resolved before the file is touched.
func (u *CountUseCase) CountFile(path, encodingName string) (domain.Count, error) {
	enc, err := u.provider.Resolve(encodingName)
	if err != nil {
		return domain.Count{}, err
	}

	text, err := u.reader.ReadFile(path)
	if err != nil {
		return domain.Count{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return u.count(enc, path, text), nil
}

func (u *CountUseCase) count(enc port.Encoder, path, text string) domain.Count {
	if text == "" {
		return domain.Count{Path: path, Encoding: enc.Name(), CountedAt: time.Now()}
	}

	if u.cache != nil {
		cached, found, err := u.cache.Get(enc.Name(), text)
		if err != nil {
			u.logger.Warn("count cache lookup failed", zap.Error(err))
		} else if found {
			u.logger.Debug("count cache hit", zap.String("encoding", enc.Name()), zap.Int("tokens", cached.Tokens))
			cached.Path = path
			return cached
		}
	}

	c := domain.Count{
		Path:      path,
		Encoding:  enc.Name(),
		Tokens:    len(enc.Encode(text)),
		Bytes:     len(text),
		CountedAt: time.Now(),
	}
	u.logger.Debug("text encoded",
		zap.String("encoding", c.Encoding),
		zap.Int("bytes", c.Bytes),
		zap.Int("tokens", c.Tokens),
	)

	if u.cache != nil {
		if err := u.cache.Put(enc.Name(), text, c); err != nil {
			u.logger.Warn("count cache store failed", zap.Error(err))
		}
	}

	return c
}

var (
	defaultOnce    sync.Once
	defaultCounter *CountUseCase
)

func defaultUseCase() *CountUseCase {
	defaultOnce.Do(func() {
		defaultCounter = NewCountUseCase(encoding.NewTiktokenProvider(true, nil), fs.NewReader(nil), nil, nil)
	})
	return defaultCounter
}

// NumTokensFromString returns the number of tokens in text using the
// offline tiktoken provider.
func NumTokensFromString(text, encodingName string) (int, error) {
	return defaultUseCase().FromString(text, encodingName)
}

// NumTokensFromFile returns the number of tokens in the file at path using
// the offline tiktoken provider.
func NumTokensFromFile(path, encodingName string) (int, error) {
	return defaultUseCase().FromFile(path, encodingName)
}
