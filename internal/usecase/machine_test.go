package usecase

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/productstudio/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMachine(fake *fakeBackend, tick time.Duration) *Machine {
	return NewMachine(NewAdapters(fake, nil), fake, MachineConfig{
		Tick: tick,
		Now:  func() time.Time { return time.UnixMilli(1700000000000) },
	}, nil)
}

func csvForm(content string) Form {
	return Form{
		Mode:     domain.SourceCSV,
		Category: "Fresh",
		File:     &domain.Upload{Filename: "products.csv", Content: []byte(content)},
	}
}

func TestMachine_CSVScenario(t *testing.T) {
	fake := &fakeBackend{csvBody: `{"success":true,"products":[
		{"sku":"F1","name":"Apples"},
		{"sku":"F2","name":"Pears"},
		{"name":"Loose Carrots"}
	]}`}
	m := newTestMachine(fake, time.Second)
	defer m.Close()

	require.NoError(t, m.Start(context.Background(), csvForm("sku,name\nF1,Apples\nF2,Pears\n,Loose Carrots\n")))

	assert.Equal(t, StateComplete, m.State())
	snap := m.Snapshot()
	require.Len(t, snap.Products, 3)

	seen := map[string]bool{}
	for i, p := range snap.Products {
		assert.NotEmpty(t, p.ID)
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
		if i < 2 {
			assert.True(t, strings.HasPrefix(p.ID, p.SKU+"-"), p.ID)
		} else {
			assert.True(t, strings.HasPrefix(p.ID, "product-"), p.ID)
		}
	}

	require.Len(t, fake.csvRequests, 1)
	assert.Equal(t, domain.CategoryFresh, fake.csvRequests[0].Category)
	assert.Empty(t, fake.csvRequests[0].BrandURL)
}

func TestMachine_GuardFailureMakesNoCall(t *testing.T) {
	fake := &fakeBackend{searchBody: `[{"sku":"x"}]`}
	m := newTestMachine(fake, time.Second)
	defer m.Close()

	before := m.Snapshot()
	err := m.Start(context.Background(), Form{
		Mode:     domain.SourceSearch,
		Category: "Drinks",
		Criteria: domain.SearchCriteria{},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, fake.callCount())
	assert.Equal(t, before, m.Snapshot())
}

func TestMachine_FailureReturnsToInputWithForm(t *testing.T) {
	fake := &fakeBackend{err: remoteErr("scrape-url", http.StatusForbidden, "blocking detected")}
	m := newTestMachine(fake, time.Second)
	defer m.Close()

	form := Form{Mode: domain.SourceURL, Category: "Fresh", URL: "https://shop.example.com/p/1"}
	err := m.Start(context.Background(), form)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBlocked)
	assert.Contains(t, err.Error(), "CSV upload")

	snap := m.Snapshot()
	assert.Equal(t, StateInput, snap.State)
	assert.Equal(t, form, snap.Form)
	assert.Nil(t, snap.Progress)
	assert.Empty(t, snap.Products)

	_, err = m.Store()
	assert.ErrorIs(t, err, domain.ErrValidation)

	// the kept form can be retried as is
	fake.err = nil
	fake.scrapeBody = `{"data":{"products":[{"sku":"U1"}]}}`
	require.NoError(t, m.Start(context.Background(), snap.Form))
	assert.Equal(t, StateComplete, m.State())
}

func TestMachine_OneRunAtATime(t *testing.T) {
	fake := &fakeBackend{
		searchBody: `{"products":[{"sku":"ABC123"}]}`,
		block:      make(chan struct{}),
	}
	m := newTestMachine(fake, time.Hour)
	defer m.Close()

	form := Form{Mode: domain.SourceSearch, Category: "Drinks", Criteria: domain.SearchCriteria{SKU: "ABC123", Text: "milk"}}

	done := make(chan error, 1)
	go func() { done <- m.Start(context.Background(), form) }()

	require.Eventually(t, func() bool {
		snap := m.Snapshot()
		return snap.Progress != nil && snap.Progress.Message == "Searching for ABC123..."
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateProcessing, m.State())

	err := m.Start(context.Background(), form)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, m.Reset(), domain.ErrValidation)

	close(fake.block)
	require.NoError(t, <-done)

	assert.Equal(t, StateComplete, m.State())
	assert.Equal(t, []string{"ABC123"}, fake.queries)

	// a second run needs a reset first
	err = m.Start(context.Background(), form)
	assert.ErrorIs(t, err, domain.ErrValidation)
	require.NoError(t, m.Reset())
	assert.Equal(t, Snapshot{State: StateInput}, m.Snapshot())
}

func TestMachine_ElapsedTicksOnlyWhileProcessing(t *testing.T) {
	fake := &fakeBackend{
		csvBody: `[{"sku":"A"}]`,
		block:   make(chan struct{}),
	}
	m := newTestMachine(fake, 10*time.Millisecond)
	defer m.Close()

	done := make(chan error, 1)
	go func() { done <- m.Start(context.Background(), csvForm("sku\nA\n")) }()

	require.Eventually(t, func() bool {
		p, ok := m.Phase().(ProcessingPhase)
		return ok && p.Progress.Elapsed >= 30*time.Millisecond
	}, 2*time.Second, 5*time.Millisecond)

	p := m.Phase().(ProcessingPhase)
	assert.Equal(t, 1, p.Progress.Estimated)

	close(fake.block)
	require.NoError(t, <-done)

	complete, ok := m.Phase().(CompletePhase)
	require.True(t, ok)
	frozen := complete.Elapsed
	assert.GreaterOrEqual(t, frozen, 30*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, frozen, m.Phase().(CompletePhase).Elapsed)
}

func TestMachine_SubscribeReceivesTransitions(t *testing.T) {
	fake := &fakeBackend{scrapeBody: `[{"sku":"A"}]`}
	m := newTestMachine(fake, time.Hour)
	defer m.Close()

	var mu sync.Mutex
	var states []State
	var messages []string
	unsubscribe := m.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s.State)
		if s.Progress != nil {
			messages = append(messages, s.Progress.Message)
		}
	})

	require.NoError(t, m.Start(context.Background(), Form{Mode: domain.SourceURL, Category: "Fresh", URL: "https://x.example.com"}))
	unsubscribe()
	require.NoError(t, m.Reset())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.Equal(t, StateProcessing, states[0])
	assert.Equal(t, StateComplete, states[len(states)-1])
	assert.Contains(t, messages, "Scraping https://x.example.com...")
}

func TestMachine_CloseStopsTickerAndRejectsRuns(t *testing.T) {
	fake := &fakeBackend{
		csvBody: `[{"sku":"A"}]`,
		block:   make(chan struct{}),
	}
	m := newTestMachine(fake, 5*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- m.Start(context.Background(), csvForm("sku\nA\n")) }()
	require.Eventually(t, func() bool { return m.State() == StateProcessing }, time.Second, time.Millisecond)

	m.Close()
	stopped := m.Phase().(ProcessingPhase).Progress.Elapsed
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, m.Phase().(ProcessingPhase).Progress.Elapsed)

	close(fake.block)
	require.NoError(t, <-done)

	require.NoError(t, m.Reset())
	err := m.Start(context.Background(), csvForm("sku\nA\n"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMachine_ContextTimeoutIsSurfaced(t *testing.T) {
	fake := &fakeBackend{block: make(chan struct{})}
	m := newTestMachine(fake, time.Hour)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.Start(ctx, Form{Mode: domain.SourceURL, Category: "Fresh", URL: "https://slow.example.com"})

	require.Error(t, err)
	assert.Equal(t, StateInput, m.State())
}
