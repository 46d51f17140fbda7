package generator

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"

	"fluxserver/internal/domain"
)

var (
	pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	mp4Magic = []byte{0x00, 0x00, 0x00, 0x18, 0x66, 0x74, 0x79, 0x70}
)

// Synthetic produces deterministic placeholder artifacts without touching a
// model. It stands in for the real generation backend in development and
// tests, mirroring the parameter handling a real implementation would see.
type Synthetic struct {
	mu    sync.Mutex
	ready bool
}

// NewSynthetic creates an uninitialized synthetic generator.
func NewSynthetic() *Synthetic {
	return &Synthetic{}
}

func (g *Synthetic) IsReady() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

func (g *Synthetic) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ready = true
	return nil
}

// Generate derives artifact bytes from the parameters alone: identical
// parameters always yield identical bytes, which is what lets cache-hit
// tests compare artifacts.
func (g *Synthetic) Generate(ctx context.Context, params domain.GenerationParams) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.ready {
		return nil, domain.ErrGeneratorNotReady
	}
	if params.Prompt == "" {
		return nil, fmt.Errorf("%w: empty prompt", domain.ErrGenerationFailed)
	}

	seed := int64(0)
	if params.Seed != nil {
		seed = *params.Seed
	}
	descriptor := fmt.Sprintf("%s|%dx%d|steps=%d|guidance=%.3f|seed=%d|adapter=%s|kind=%s|dur=%.2f|fps=%d",
		params.Prompt, params.Width, params.Height, params.Steps, params.GuidanceScale,
		seed, params.AdapterPath, params.Kind, params.Duration, params.FPS)

	magic := pngMagic
	if params.Kind == domain.TaskKindVideo {
		magic = mp4Magic
	}

	out := make([]byte, 0, len(magic)+1024)
	out = append(out, magic...)
	state := sha256.Sum256([]byte(descriptor))
	var counter [8]byte
	for i := 0; i < 32; i++ {
		binary.BigEndian.PutUint64(counter[:], uint64(i))
		block := sha256.Sum256(append(state[:], counter[:]...))
		out = append(out, block[:]...)
	}
	return out, nil
}

var _ Generator = (*Synthetic)(nil)
