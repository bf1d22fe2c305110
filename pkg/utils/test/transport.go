package testutils

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/tokentap/pkg/transport"
)

// ChunkTransport is a transport.Transport whose body returns exactly one
// scripted chunk per Read, so tests control chunk boundaries precisely.
type ChunkTransport struct {
	// Chunks are returned one per Read.
	Chunks []string

	// OpenErr, when set, is returned by Open.
	OpenErr error

	// ReadErr, when set, is returned after the last chunk instead of io.EOF.
	ReadErr error

	// Hold blocks the body after the last chunk until ctx is cancelled.
	Hold bool

	// Gate, when set, must yield a value before each chunk is returned.
	Gate chan struct{}

	mu     sync.Mutex
	opened []*transport.Request
	closed atomic.Int32
}

var _ transport.Transport = (*ChunkTransport)(nil)

// Open records req and returns a scripted body bound to ctx.
func (t *ChunkTransport) Open(ctx context.Context, req *transport.Request) (io.ReadCloser, error) {
	t.mu.Lock()
	t.opened = append(t.opened, req)
	t.mu.Unlock()

	if t.OpenErr != nil {
		return nil, t.OpenErr
	}

	return &chunkBody{
		ctx:    ctx,
		chunks: append([]string(nil), t.Chunks...),
		err:    t.ReadErr,
		hold:   t.Hold,
		gate:   t.Gate,
		closed: &t.closed,
	}, nil
}

// Opened returns the requests passed to Open.
func (t *ChunkTransport) Opened() []*transport.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*transport.Request(nil), t.opened...)
}

// Closed returns how many bodies have been closed.
func (t *ChunkTransport) Closed() int {
	return int(t.closed.Load())
}

type chunkBody struct {
	ctx    context.Context
	chunks []string
	err    error
	hold   bool
	gate   chan struct{}
	closed *atomic.Int32
	once   sync.Once
}

func (b *chunkBody) Read(p []byte) (int, error) {
	if err := b.ctx.Err(); err != nil {
		return 0, err
	}

	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		if b.hold {
			<-b.ctx.Done()
			return 0, b.ctx.Err()
		}
		return 0, io.EOF
	}

	if b.gate != nil {
		select {
		case <-b.gate:
		case <-b.ctx.Done():
			return 0, b.ctx.Err()
		}
	}

	n := copy(p, b.chunks[0])
	if n < len(b.chunks[0]) {
		b.chunks[0] = b.chunks[0][n:]
	} else {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *chunkBody) Close() error {
	b.once.Do(func() { b.closed.Add(1) })
	return nil
}
