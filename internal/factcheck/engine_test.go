package factcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/truthpost/internal/consensus"
	"github.com/ppiankov/truthpost/internal/llm"
	"github.com/ppiankov/truthpost/internal/model"
	"github.com/ppiankov/truthpost/internal/oracle"
	"github.com/ppiankov/truthpost/internal/store"
)

const (
	pythonClaim = "Python was created by Guido van Rossum"
	wallClaim   = "The Great Wall of China is visible from space with the naked eye"
	submitter   = "0xA11CE"
)

type fakeOracle struct {
	fetch func(ctx context.Context, url string) (string, error)
	judge func(ctx context.Context, prompt string) ([]byte, error)
}

func (f *fakeOracle) FetchPage(ctx context.Context, url string, mode oracle.Mode) (string, error) {
	if mode != oracle.ModeText {
		return "", fmt.Errorf("unexpected mode %q", mode)
	}
	if f.fetch == nil {
		return "Some page text.", nil
	}
	return f.fetch(ctx, url)
}

func (f *fakeOracle) Judge(ctx context.Context, prompt string, format llm.Format) ([]byte, error) {
	if format != llm.FormatStructured {
		return nil, fmt.Errorf("unexpected format %v", format)
	}
	return f.judge(ctx, prompt)
}

// replying answers every judgment with the same document
func replying(doc string) *fakeOracle {
	return &fakeOracle{judge: func(context.Context, string) ([]byte, error) {
		return []byte(doc), nil
	}}
}

type recordingNotifier struct {
	mu     sync.Mutex
	claims []model.Claim
	err    error
}

func (r *recordingNotifier) ClaimResolved(_ context.Context, c model.Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims = append(r.claims, c)
	return r.err
}

func newEngine(o Oracle) (*Engine, *store.MemoryStore) {
	s := store.NewMemoryStore()
	return NewEngine(s, o, consensus.NewStrictEqual(3, 3, nil), nil, nil), s
}

func TestSubmitClaim(t *testing.T) {
	e, _ := newEngine(replying(`{}`))
	ctx := context.Background()

	c, err := e.SubmitClaim(ctx, pythonClaim, "https://en.wikipedia.org/wiki/Python_(programming_language)", submitter)
	require.NoError(t, err)
	assert.Equal(t, "claim_1", c.ID)
	assert.Equal(t, model.VerdictPending, c.Verdict)
	assert.False(t, c.Resolved)
	assert.Empty(t, c.Explanation)
	assert.Equal(t, submitter, c.Submitter)

	second, err := e.SubmitClaim(ctx, pythonClaim, "https://example.org", submitter)
	require.NoError(t, err)
	assert.Equal(t, "claim_2", second.ID, "identical submissions get distinct ids")

	views, err := e.GetClaims(ctx)
	require.NoError(t, err)
	assert.Len(t, views, 2)
	assert.Equal(t, "pending", views["claim_1"].Verdict)
	assert.False(t, views["claim_1"].Checked)
}

func TestResolveClaim_True(t *testing.T) {
	o := replying(`{"verdict":"true","explanation":"Guido van Rossum began work on Python in 1989."}`)
	e, _ := newEngine(o)
	ctx := context.Background()

	_, err := e.SubmitClaim(ctx, pythonClaim, "https://en.wikipedia.org/wiki/Python_(programming_language)", submitter)
	require.NoError(t, err)

	c, err := e.ResolveClaim(ctx, "claim_1", "0xB0B")
	require.NoError(t, err)
	assert.Equal(t, model.VerdictTrue, c.Verdict)
	assert.True(t, c.Resolved)
	assert.Equal(t, "Guido van Rossum began work on Python in 1989.", c.Explanation)
	assert.NotEmpty(t, c.Digest)
	require.NotNil(t, c.ResolvedAt)

	stored, err := e.GetClaim(ctx, "claim_1")
	require.NoError(t, err)
	assert.Equal(t, c, stored)

	rep, err := e.GetUserReputation(ctx, submitter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rep)

	caller, err := e.GetUserReputation(ctx, "0xB0B")
	require.NoError(t, err)
	assert.Zero(t, caller, "the resolving caller earns nothing")
}

func TestResolveClaim_FalseStillRewards(t *testing.T) {
	e, _ := newEngine(replying(`{"verdict":"false","explanation":"It is not visible to the naked eye from orbit."}`))
	ctx := context.Background()

	_, err := e.SubmitClaim(ctx, wallClaim, "https://en.wikipedia.org/wiki/Great_Wall_of_China", submitter)
	require.NoError(t, err)

	c, err := e.ResolveClaim(ctx, "claim_1", submitter)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictFalse, c.Verdict)

	rep, err := e.GetReputation(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{submitter: 1}, rep)
}

func TestResolveClaim_Twice(t *testing.T) {
	e, _ := newEngine(replying(`{"verdict":"true","explanation":"ok"}`))
	ctx := context.Background()

	_, err := e.SubmitClaim(ctx, pythonClaim, "https://example.org", submitter)
	require.NoError(t, err)

	first, err := e.ResolveClaim(ctx, "claim_1", submitter)
	require.NoError(t, err)

	_, err = e.ResolveClaim(ctx, "claim_1", submitter)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.False(t, IsRetryable(err))

	after, err := e.GetClaim(ctx, "claim_1")
	require.NoError(t, err)
	assert.Equal(t, first, after)

	rep, _ := e.GetUserReputation(ctx, submitter)
	assert.Equal(t, int64(1), rep)
}

func TestResolveClaim_NotFound(t *testing.T) {
	e, _ := newEngine(replying(`{"verdict":"true"}`))
	ctx := context.Background()

	_, err := e.ResolveClaim(ctx, "claim_99", submitter)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.GetClaim(ctx, "claim_99")
	assert.ErrorIs(t, err, ErrNotFound)

	rep, err := e.GetReputation(ctx)
	require.NoError(t, err)
	assert.NotNil(t, rep)
	assert.Empty(t, rep)
}

func TestResolveClaim_InvalidVerdictThenRecovers(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing verdict", `{"explanation":"no label"}`},
		{"out of enum", `{"verdict":"mostly_true","explanation":"close"}`},
		{"pending label", `{"verdict":"pending","explanation":"unsure"}`},
		{"extra key", `{"verdict":"true","explanation":"ok","confidence":0.9}`},
		{"non-string explanation", `{"verdict":"true","explanation":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var good atomic.Bool
			o := &fakeOracle{judge: func(context.Context, string) ([]byte, error) {
				if good.Load() {
					return []byte(`{"verdict":"partially_true","explanation":"half right"}`), nil
				}
				return []byte(tt.doc), nil
			}}
			e, _ := newEngine(o)
			ctx := context.Background()

			_, err := e.SubmitClaim(ctx, pythonClaim, "https://example.org", submitter)
			require.NoError(t, err)

			_, err = e.ResolveClaim(ctx, "claim_1", submitter)
			assert.ErrorIs(t, err, ErrInvalidVerdict)
			assert.False(t, IsRetryable(err))

			c, _ := e.GetClaim(ctx, "claim_1")
			assert.Equal(t, model.VerdictPending, c.Verdict)
			assert.False(t, c.Resolved)
			rep, _ := e.GetUserReputation(ctx, submitter)
			assert.Zero(t, rep)

			good.Store(true)
			c, err = e.ResolveClaim(ctx, "claim_1", submitter)
			require.NoError(t, err)
			assert.Equal(t, model.VerdictPartiallyTrue, c.Verdict)
		})
	}
}

func TestResolveClaim_MalformedOutputIsInvalidVerdict(t *testing.T) {
	tests := []struct {
		name   string
		oracle *fakeOracle
	}{
		{
			name: "provider reports malformed output",
			oracle: &fakeOracle{judge: func(context.Context, string) ([]byte, error) {
				return nil, fmt.Errorf("judge: %w", llm.ErrMalformedOutput)
			}},
		},
		{
			name:   "reply is not a JSON object",
			oracle: replying("not json at all"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, s := newEngine(tt.oracle)
			ctx := context.Background()

			_, _ = e.SubmitClaim(ctx, pythonClaim, "https://example.org", submitter)
			_, err := e.ResolveClaim(ctx, "claim_1", submitter)
			require.ErrorIs(t, err, ErrInvalidVerdict)
			assert.NotErrorIs(t, err, consensus.ErrAgreementFailure)
			assert.False(t, IsRetryable(err))

			c, err := s.Get(ctx, "claim_1")
			require.NoError(t, err)
			assert.False(t, c.Resolved)
		})
	}
}

func TestResolveClaim_MissingExplanationDefaultsEmpty(t *testing.T) {
	e, _ := newEngine(replying(`{"verdict":"false"}`))
	ctx := context.Background()

	_, _ = e.SubmitClaim(ctx, wallClaim, "https://example.org", submitter)
	c, err := e.ResolveClaim(ctx, "claim_1", submitter)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictFalse, c.Verdict)
	assert.Empty(t, c.Explanation)
}

func TestResolveClaim_Disagreement(t *testing.T) {
	var n atomic.Int32
	o := &fakeOracle{judge: func(context.Context, string) ([]byte, error) {
		if n.Add(1) == 2 {
			return []byte(`{"verdict":"false","explanation":"b"}`), nil
		}
		return []byte(`{"verdict":"true","explanation":"a"}`), nil
	}}
	e, _ := newEngine(o)
	ctx := context.Background()

	_, _ = e.SubmitClaim(ctx, pythonClaim, "https://example.org", submitter)
	_, err := e.ResolveClaim(ctx, "claim_1", submitter)
	require.Error(t, err)
	assert.ErrorIs(t, err, consensus.ErrAgreementFailure)
	assert.True(t, IsRetryable(err))

	var dis *consensus.DisagreementError
	require.ErrorAs(t, err, &dis)
	assert.Len(t, dis.Distinct, 2)

	c, _ := e.GetClaim(ctx, "claim_1")
	assert.False(t, c.Resolved)
}

func TestResolveClaim_KeyOrderAndWhitespaceAgree(t *testing.T) {
	var n atomic.Int32
	o := &fakeOracle{judge: func(context.Context, string) ([]byte, error) {
		if n.Add(1)%2 == 0 {
			return []byte("{\n  \"explanation\": \"same\",\n  \"verdict\": \"true\"\n}"), nil
		}
		return []byte(`{"verdict":"true","explanation":"same"}`), nil
	}}
	e, _ := newEngine(o)
	ctx := context.Background()

	_, _ = e.SubmitClaim(ctx, pythonClaim, "https://example.org", submitter)
	c, err := e.ResolveClaim(ctx, "claim_1", submitter)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictTrue, c.Verdict)

	want, _ := consensus.Digest([]byte(`{"explanation":"same","verdict":"true"}`))
	assert.Equal(t, want, c.Digest)
}

func TestResolveClaim_FetchFailureIsRetryable(t *testing.T) {
	o := replying(`{"verdict":"true","explanation":"ok"}`)
	o.fetch = func(context.Context, string) (string, error) {
		return "", errors.New("fetch https://example.org: unexpected status: 503 Service Unavailable")
	}
	e, _ := newEngine(o)
	ctx := context.Background()

	_, _ = e.SubmitClaim(ctx, pythonClaim, "https://example.org", submitter)
	_, err := e.ResolveClaim(ctx, "claim_1", submitter)
	assert.ErrorIs(t, err, consensus.ErrAgreementFailure)
	assert.True(t, IsRetryable(err))

	c, _ := e.GetClaim(ctx, "claim_1")
	assert.Equal(t, model.VerdictPending, c.Verdict)
}

func TestResolveClaim_PromptCarriesClaimAndPage(t *testing.T) {
	var prompt atomic.Value
	o := &fakeOracle{
		fetch: func(context.Context, string) (string, error) {
			return "Python was conceived in the late 1980s by Guido van Rossum.", nil
		},
		judge: func(_ context.Context, p string) ([]byte, error) {
			prompt.Store(p)
			return []byte(`{"verdict":"true","explanation":"ok"}`), nil
		},
	}
	e, _ := newEngine(o)
	ctx := context.Background()

	_, _ = e.SubmitClaim(ctx, pythonClaim, "https://example.org", submitter)
	_, err := e.ResolveClaim(ctx, "claim_1", submitter)
	require.NoError(t, err)

	p := prompt.Load().(string)
	assert.Contains(t, p, "CLAIM: "+pythonClaim)
	assert.Contains(t, p, "WEB CONTENT:\nPython was conceived in the late 1980s")
	assert.Contains(t, p, "partially_true")
}

func TestResolveClaim_NotifiesBestEffort(t *testing.T) {
	s := store.NewMemoryStore()
	n := &recordingNotifier{err: errors.New("channel unavailable")}
	e := NewEngine(s, replying(`{"verdict":"true","explanation":"ok"}`), consensus.NewStrictEqual(2, 1, nil), n, nil)
	ctx := context.Background()

	_, _ = e.SubmitClaim(ctx, pythonClaim, "https://example.org", submitter)
	c, err := e.ResolveClaim(ctx, "claim_1", submitter)
	require.NoError(t, err, "announcement failures never fail a resolution")
	require.Len(t, n.claims, 1)
	assert.Equal(t, c, n.claims[0])
}

func TestResolveClaim_ConcurrentCallersCommitOnce(t *testing.T) {
	e, _ := newEngine(replying(`{"verdict":"true","explanation":"ok"}`))
	ctx := context.Background()
	_, _ = e.SubmitClaim(ctx, pythonClaim, "https://example.org", submitter)

	const callers = 8
	var wg sync.WaitGroup
	var wins, already atomic.Int32
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.ResolveClaim(ctx, "claim_1", submitter)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrAlreadyResolved):
				already.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(callers-1), already.Load())
	rep, _ := e.GetUserReputation(ctx, submitter)
	assert.Equal(t, int64(1), rep)
}

func TestReputationMatchesResolvedCount(t *testing.T) {
	e, _ := newEngine(replying(`{"verdict":"partially_true","explanation":"mixed"}`))
	ctx := context.Background()

	for i := range 5 {
		who := "alice"
		if i%2 == 1 {
			who = "bob"
		}
		_, err := e.SubmitClaim(ctx, fmt.Sprintf("claim text %d", i), "https://example.org", who)
		require.NoError(t, err)
	}
	for _, id := range []string{"claim_1", "claim_2", "claim_3"} {
		_, err := e.ResolveClaim(ctx, id, "carol")
		require.NoError(t, err)
	}

	rep, err := e.GetReputation(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"alice": 2, "bob": 1}, rep)

	pending, err := e.PendingClaimIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"claim_4", "claim_5"}, pending)
}

func TestResolveClaim_ContextCanceled(t *testing.T) {
	o := &fakeOracle{judge: func(ctx context.Context, _ string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	e, _ := newEngine(o)
	_, _ = e.SubmitClaim(context.Background(), pythonClaim, "https://example.org", submitter)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := e.ResolveClaim(ctx, "claim_1", submitter)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsRetryable(err))
}

// End to end through the real oracle adapter: an httptest source page and
// a scripted model.
func TestResolveClaim_ThroughAdapter(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body><h1>Python</h1><p>Created by Guido van Rossum.</p></body></html>")
	}))
	defer page.Close()

	provider := llm.NewScriptedProvider("```json\n{\"verdict\": \"true\", \"explanation\": \"The page names Guido van Rossum.\"}\n```")

	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.RateLimiting.RequestsPerSecond = 0
	adapter := oracle.New(cfg, provider, nil, nil)

	e := NewEngine(store.NewMemoryStore(), adapter, consensus.NewStrictEqual(3, 3, nil), nil, nil)
	ctx := context.Background()

	_, err := e.SubmitClaim(ctx, pythonClaim, page.URL+"/wiki/Python", submitter)
	require.NoError(t, err)

	c, err := e.ResolveClaim(ctx, "claim_1", submitter)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictTrue, c.Verdict)
	assert.Equal(t, "The page names Guido van Rossum.", c.Explanation)

	assert.Equal(t, 3, provider.Calls())
	for _, p := range provider.Prompts() {
		assert.True(t, strings.Contains(p, "Created by Guido van Rossum."), "prompt should carry page text")
	}
}
