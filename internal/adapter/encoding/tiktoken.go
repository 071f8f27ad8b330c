package encoding

import (
	"fmt"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"go.uber.org/zap"

	"tokcount/internal/port"
)

var knownEncodings = map[string]struct{}{
	"o200k_base":  {},
	"cl100k_base": {},
	"p50k_base":   {},
	"p50k_edit":   {},
	"r50k_base":   {},
}

var offlineOnce sync.Once

// Encoder wraps a resolved tiktoken encoding.
type Encoder struct {
	name string
	enc  *tiktoken.Tiktoken
}

func (e *Encoder) Name() string {
	return e.name
}

// Encode tokenizes text. Special tokens such as <|endoftext|> are treated
// as ordinary text.
func (e *Encoder) Encode(text string) []int {
	return e.enc.Encode(text, nil, nil)
}

// TiktokenProvider resolves encoding names through tiktoken-go and keeps
// every resolved encoder for reuse.
type TiktokenProvider struct {
	mu       sync.Mutex
	encoders map[string]*Encoder
	logger   *zap.Logger
}

// NewTiktokenProvider creates a provider. With offline set, BPE ranks come
// from the embedded loader and nothing is downloaded. The loader is process
// global in tiktoken-go, so the first offline provider installs it for all.
func NewTiktokenProvider(offline bool, logger *zap.Logger) *TiktokenProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if offline {
		offlineOnce.Do(func() {
			tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		})
	}
	return &TiktokenProvider{
		encoders: make(map[string]*Encoder),
		logger:   logger,
	}
}

// Resolve returns the encoder for name.
func (p *TiktokenProvider) Resolve(name string) (port.Encoder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if enc, ok := p.encoders[name]; ok {
		return enc, nil
	}

	if _, ok := knownEncodings[name]; !ok {
		return nil, fmt.Errorf("%w: %q", port.ErrUnknownEncoding, name)
	}

	tk, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %q: %w", name, err)
	}

	enc := &Encoder{name: name, enc: tk}
	p.encoders[name] = enc
	p.logger.Debug("encoding resolved", zap.String("encoding", name))
	return enc, nil
}
