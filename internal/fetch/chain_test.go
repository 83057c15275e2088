package fetch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scribehq/docharvest/internal/document"
)

type stubRenderer struct {
	calls  int
	render func(call int) (string, error)
}

func (s *stubRenderer) RenderPage(_ context.Context, _ string, _ time.Duration) (string, error) {
	s.calls++
	return s.render(s.calls)
}

func (s *stubRenderer) Close() {}

type stubStatic struct {
	calls int
	html  string
	err   error
}

func (s *stubStatic) FetchHTML(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.html, s.err
}

func newTestChain(r document.PageRenderer, s document.StaticFetcher) *Chain {
	c := NewChain(ChainConfig{MaxAttempts: 3, RetryBackoff: time.Millisecond}, r, s, zap.NewNop())
	c.sleep = func(time.Duration) {}
	return c
}

func TestChainRenderedSuccess(t *testing.T) {
	t.Parallel()

	renderer := &stubRenderer{render: func(int) (string, error) { return "<html>ok</html>", nil }}
	static := &stubStatic{}
	chain := newTestChain(renderer, static)

	res := chain.Fetch(context.Background(), "https://example.com")
	require.Equal(t, document.MethodRendered, res.Method)
	require.Equal(t, "<html>ok</html>", res.HTML)
	require.Equal(t, 1, renderer.calls)
	require.Zero(t, static.calls)
}

func TestChainRetriesExactlyMaxAttempts(t *testing.T) {
	t.Parallel()

	renderer := &stubRenderer{render: func(int) (string, error) { return "", errors.New("navigation failed") }}
	static := &stubStatic{html: "<html>static</html>"}
	chain := newTestChain(renderer, static)

	res := chain.Fetch(context.Background(), "https://example.com")
	require.Equal(t, 3, renderer.calls)
	require.Equal(t, document.MethodStaticFallback, res.Method)
}

func TestChainStaticRunsBeforeErrorArtifact(t *testing.T) {
	t.Parallel()

	renderer := &stubRenderer{render: func(int) (string, error) { return "", errors.New("renderer down") }}
	static := &stubStatic{err: errors.New("connection refused")}
	chain := newTestChain(renderer, static)

	res := chain.Fetch(context.Background(), "https://example.com/page")
	require.Equal(t, 1, static.calls)
	require.Equal(t, document.MethodErrorArtifact, res.Method)
	require.Contains(t, res.HTML, "https://example.com/page")
	require.Contains(t, res.HTML, "renderer down")
	require.Contains(t, res.HTML, "connection refused")
}

func TestChainRetriesOnBotBlock(t *testing.T) {
	t.Parallel()

	renderer := &stubRenderer{render: func(call int) (string, error) {
		if call < 3 {
			return "<html>blocked page</html>", fmt.Errorf("attempt %d: %w", call, ErrBotBlocked)
		}
		return "<html>real page</html>", nil
	}}
	chain := newTestChain(renderer, &stubStatic{})

	res := chain.Fetch(context.Background(), "https://example.com")
	require.Equal(t, 3, renderer.calls)
	require.Equal(t, document.MethodRendered, res.Method)
	require.Equal(t, "<html>real page</html>", res.HTML)
}

func TestChainAcceptsBlockedPageOnFinalAttempt(t *testing.T) {
	t.Parallel()

	renderer := &stubRenderer{render: func(int) (string, error) {
		return "<html>blocked page</html>", ErrBotBlocked
	}}
	static := &stubStatic{}
	chain := newTestChain(renderer, static)

	res := chain.Fetch(context.Background(), "https://example.com")
	require.Equal(t, 3, renderer.calls)
	require.Equal(t, document.MethodRendered, res.Method)
	require.Equal(t, "<html>blocked page</html>", res.HTML)
	require.Zero(t, static.calls)
}

func TestChainBacksOffBetweenAttempts(t *testing.T) {
	t.Parallel()

	renderer := &stubRenderer{render: func(int) (string, error) { return "", errors.New("boom") }}
	chain := NewChain(ChainConfig{MaxAttempts: 3, RetryBackoff: 5 * time.Second}, renderer, &stubStatic{html: "x"}, zap.NewNop())

	var waits []time.Duration
	chain.sleep = func(d time.Duration) { waits = append(waits, d) }

	chain.Fetch(context.Background(), "https://example.com")
	require.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, waits)
}
