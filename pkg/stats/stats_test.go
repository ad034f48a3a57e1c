package stats

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/qaplatform/qaglue/pkg/dom"
)

const dashboard = `<html><body>
<span data-stat="users.total">0</span>
<span data-stat="questions.unanswered">0</span>
<span data-stat="generated_at">-</span>
</body></html>`

const payload = `{"users":{"total":12,"new_today":1},"questions":{"total":40,"unanswered":7},"generated_at":"2026-10-15"}`

func TestFlatten(t *testing.T) {
	dec := json.NewDecoder(strings.NewReader(`{"a":{"b":1.5,"c":{"d":true}},"e":null,"f":"x"}`))
	dec.UseNumber()
	var v map[string]any
	require.NoError(t, dec.Decode(&v))

	out := map[string]string{}
	Flatten("", v, out)
	assert.Equal(t, map[string]string{"a.b": "1.5", "a.c.d": "true", "e": "", "f": "x"}, out)
}

func TestRefreshUpdatesElements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stats", r.URL.Path)
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	doc, err := dom.ParseString(dashboard)
	require.NoError(t, err)
	clock := clockwork.NewFakeClock()
	r := New(doc, srv.URL, WithClock(clock))

	values, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "12", values["users.total"])

	out := doc.String()
	assert.Contains(t, out, `<span data-stat="users.total" class="pulse">12</span>`)
	assert.Contains(t, out, `<span data-stat="questions.unanswered" class="pulse">7</span>`)
	assert.Contains(t, out, `>2026-10-15</span>`)

	clock.Advance(PulseDuration)
	assert.Eventually(t, func() bool {
		var pulsing bool
		doc.View(func(root *html.Node) {
			pulsing = len(dom.QueryAll(root, dom.ByClass("pulse"))) > 0
		})
		return !pulsing
	}, time.Second, 5*time.Millisecond)
}

func TestRefreshErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	doc, err := dom.ParseString(dashboard)
	require.NoError(t, err)

	_, err = New(doc, srv.URL).Refresh(context.Background())
	assert.Error(t, err)
	assert.NotContains(t, doc.String(), "pulse")
}

func TestConcurrentRefreshesShareRequest(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	doc, err := dom.ParseString(dashboard)
	require.NoError(t, err)
	r := New(doc, srv.URL, WithClock(clockwork.NewFakeClock()))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Refresh(context.Background())
			assert.NoError(t, err)
		}()
	}
	assert.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), hits.Load())
}

func TestRunTicks(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	doc, err := dom.ParseString(dashboard)
	require.NoError(t, err)
	clock := clockwork.NewFakeClock()
	r := New(doc, srv.URL, WithClock(clock), WithInterval(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	assert.Equal(t, int32(0), hits.Load())

	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool { return hits.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
}
