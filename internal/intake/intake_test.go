package intake

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"land-portal/parcel-portal/parcel-portal-backend/internal/boundary"
	"land-portal/parcel-portal/parcel-portal-backend/internal/draft"
	"land-portal/parcel-portal/parcel-portal-backend/internal/metrics"
	"land-portal/parcel-portal/parcel-portal-backend/pkg/clock"
	"land-portal/parcel-portal/parcel-portal-backend/pkg/workflows"
)

// MockTransport is a mock implementation of the Transport interface
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Send(ctx context.Context, p *Payload) (map[string]interface{}, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]interface{}), args.Error(1)
}

// blockingTransport holds each send until the test releases it
type blockingTransport struct {
	started chan struct{}
	release chan error
	calls   int32
}

func newBlockingTransport() *blockingTransport {
	return &blockingTransport{started: make(chan struct{}, 1), release: make(chan error, 1)}
}

func (t *blockingTransport) Send(ctx context.Context, p *Payload) (map[string]interface{}, error) {
	atomic.AddInt32(&t.calls, 1)
	t.started <- struct{}{}
	if err := <-t.release; err != nil {
		return nil, err
	}
	return map[string]interface{}{"id": "parcel-1"}, nil
}

type fixture struct {
	clock   *clock.Fake
	store   *draft.MemoryStore
	session *draft.Session
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fc := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := draft.NewMemoryStore()
	m := metrics.New(prometheus.NewRegistry())
	p := draft.NewPersister(store, draft.PersisterConfig{}, fc, zap.NewNop(), m)
	return &fixture{
		clock:   fc,
		store:   store,
		session: draft.Open(context.Background(), p, zap.NewNop(), m),
		metrics: m,
	}
}

func (f *fixture) orchestrator(tr Transport) *Orchestrator {
	return NewOrchestrator(f.session, tr, f.clock, Config{}, zap.NewNop(), f.metrics)
}

func submitAsync(o *Orchestrator) <-chan *Result {
	out := make(chan *Result, 1)
	go func() {
		res, err := o.Submit(context.Background())
		if err != nil {
			out <- nil
			return
		}
		out <- res
	}()
	return out
}

func TestCheckPreconditionsReportsEveryFailure(t *testing.T) {
	d := draft.NewDraft()
	d.Coordinates = []boundary.Coordinate{
		boundary.NewCoordinate("A", "-1.29", "36.82"),
		boundary.NewCoordinate("B", "abc", "36.83"),
	}

	errs := CheckPreconditions(d)
	require.Len(t, errs, 3)
	assert.Equal(t, FieldError{Field: draft.FieldTitleNumber, Message: "Title number is required"}, errs[0])
	assert.Equal(t, FieldError{Field: draft.FieldDeedPlan, Message: "Deed plan is required (either file or text)"}, errs[1])
	assert.Equal(t, FieldError{Field: draft.FieldCoordinates, Message: "At least 3 valid coordinates are required (2 more needed)"}, errs[2])

	d.TitleNumber = "  "
	d.DeedPlan.File = &draft.Attachment{Name: "deed.pdf"}
	errs = CheckPreconditions(d)
	require.Len(t, errs, 2)
	assert.Equal(t, draft.FieldTitleNumber, errs[0].Field)

	assert.Empty(t, CheckPreconditions(draft.SampleDraft()))
}

func TestBuildPayloadUsesValidCoordinatesOnly(t *testing.T) {
	d := draft.SampleDraft()
	d.Coordinates = append(d.Coordinates, boundary.NewCoordinate("E", "95", "36.8"))

	p := BuildPayload(d)
	require.Len(t, p.Coordinates, 4)
	assert.Equal(t, PayloadCoordinate{BeaconID: "A", Lat: -1.2921, Lng: 36.8219}, p.Coordinates[0])
	assert.InDelta(t, boundary.ComputeArea(d.ValidPoints()), p.AreaSquareMeters, 1e-9)
	assert.Equal(t, "acres", p.LandSizeUnit)
}

func TestHTTPTransportSendsMultipartForm(t *testing.T) {
	var got *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"parcel-9"}`))
	}))
	defer server.Close()

	d := draft.SampleDraft()
	d.DeedPlan.File = &draft.Attachment{Name: "deed.pdf", ContentType: "application/pdf", Size: 4, Data: []byte("%PDF")}
	d.SupportingFiles = []draft.Attachment{
		{Name: "a.png", ContentType: "image/png", Data: []byte{1}},
		{Name: "b.png", ContentType: "image/png", Data: []byte{2}},
	}

	tr := NewHTTPTransport(server.URL, 5*time.Second)
	resp, err := tr.Send(context.Background(), BuildPayload(d))
	require.NoError(t, err)
	assert.Equal(t, "parcel-9", resp["id"])

	require.NotNil(t, got)
	form := got.MultipartForm
	assert.Equal(t, []string{"LR 12345/67"}, form.Value["titleNumber"])
	assert.Equal(t, []string{"Nairobi"}, form.Value["county"])
	assert.Equal(t, []string{"2.5"}, form.Value["landSize"])
	assert.Equal(t, []string{"acres"}, form.Value["landSizeUnit"])
	assert.Equal(t, []string{"Deed plan registered in 2020"}, form.Value["deedPlanText"])
	assert.Equal(t, []string{`["Land rates clearance certificate"]`}, form.Value["supportingDocsTexts"])

	var coords []PayloadCoordinate
	require.NoError(t, json.Unmarshal([]byte(form.Value["coordinates"][0]), &coords))
	assert.Len(t, coords, 4)
	assert.Equal(t, "D", coords[3].BeaconID)

	require.Len(t, form.File["deedPlanFile"], 1)
	assert.Equal(t, "deed.pdf", form.File["deedPlanFile"][0].Filename)
	assert.Empty(t, form.File["surveyPlanFile"])
	assert.Len(t, form.File["supportingDocs_0"], 1)
	assert.Len(t, form.File["supportingDocs_1"], 1)

	fh, err := form.File["supportingDocs_1"][0].Open()
	require.NoError(t, err)
	data, err := io.ReadAll(fh)
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, data)
}

func TestHTTPTransportRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewHTTPTransport(server.URL, time.Second).Send(context.Background(), BuildPayload(draft.SampleDraft()))
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
}

func TestSubmitIncompleteDraftNeverCallsIntake(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	f := newFixture(t)
	_, err := f.session.AddCoordinate("A", "-1.29", "36.82")
	require.NoError(t, err)
	_, err = f.session.AddCoordinate("B", "-1.30", "36.83")
	require.NoError(t, err)

	o := f.orchestrator(NewHTTPTransport(server.URL, time.Second))
	res, err := o.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeValidationFailure, res.Outcome)
	assert.Len(t, res.Errors, 3)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
	assert.Equal(t, workflows.StateIdle, o.Status().State)

	errs := f.session.Errors()
	msg, ok := errs.Get(draft.FieldKey(draft.FieldCoordinates))
	assert.True(t, ok)
	assert.Equal(t, "At least 3 valid coordinates are required (1 more needed)", msg)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SubmissionsTotal.WithLabelValues(string(OutcomeValidationFailure))))
}

func TestSubmitProgressAndSuccess(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.LoadSample())
	tr := newBlockingTransport()
	o := f.orchestrator(tr)

	var mu sync.Mutex
	var seen []Status
	unsubscribe := o.Subscribe(func(s Status) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	defer unsubscribe()

	done := submitAsync(o)
	<-tr.started

	assert.Equal(t, Status{State: workflows.StateUploading, UpdatedAt: f.clock.Now()}, o.Status())
	f.clock.Advance(200 * time.Millisecond)
	assert.Equal(t, 10, o.Status().Progress)
	f.clock.Advance(5 * time.Second)
	assert.Equal(t, 90, o.Status().Progress)

	tr.release <- nil
	res := <-done
	require.NotNil(t, res)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "parcel-1", res.Response["id"])

	st := o.Status()
	assert.Equal(t, workflows.StateSuccess, st.State)
	assert.Equal(t, 100, st.Progress)

	assert.Equal(t, draft.NewDraft(), f.session.Snapshot())
	_, err := f.store.Load(context.Background(), draft.DefaultKey)
	assert.ErrorIs(t, err, draft.ErrNotFound)

	f.clock.Advance(2 * time.Second)
	st = o.Status()
	assert.Equal(t, workflows.StateIdle, st.State)
	assert.Equal(t, 0, st.Progress)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, workflows.StateUploading, seen[0].State)
	for i := 1; i < len(seen); i++ {
		if seen[i].State == workflows.StateUploading {
			assert.GreaterOrEqual(t, seen[i].Progress, seen[i-1].Progress)
		}
	}
	assert.Equal(t, workflows.StateIdle, seen[len(seen)-1].State)
}

func TestSubmitTransportFailureKeepsDraft(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.LoadSample())
	before := f.session.Snapshot()

	tr := new(MockTransport)
	tr.On("Send", mock.Anything, mock.AnythingOfType("*intake.Payload")).Return(nil, &TransportError{StatusCode: 500})
	o := f.orchestrator(tr)

	res, err := o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeTransportFailure, res.Outcome)
	assert.Equal(t, SubmitErrorMessage, res.Message)

	st := o.Status()
	assert.Equal(t, workflows.StateIdle, st.State)
	assert.Equal(t, 0, st.Progress)
	assert.Equal(t, SubmitErrorMessage, st.Message)
	assert.Equal(t, before, f.session.Snapshot())
	tr.AssertExpectations(t)
}

func TestSubmitRejectsConcurrentAttempt(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.LoadSample())
	tr := newBlockingTransport()
	o := f.orchestrator(tr)

	done := submitAsync(o)
	<-tr.started

	_, err := o.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	tr.release <- errors.New("connection reset")
	res := <-done
	require.NotNil(t, res)
	assert.Equal(t, OutcomeTransportFailure, res.Outcome)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tr.calls))
}

func TestSubmitAbandonedWhenSessionClosed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.LoadSample())
	tr := newBlockingTransport()
	o := f.orchestrator(tr)

	done := submitAsync(o)
	<-tr.started
	require.NoError(t, f.session.Close(context.Background()))

	tr.release <- nil
	res := <-done
	require.NotNil(t, res)
	assert.Equal(t, OutcomeAbandoned, res.Outcome)

	data, err := f.store.Load(context.Background(), draft.DefaultKey)
	require.NoError(t, err)
	saved, err := draft.DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, "LR 12345/67", saved.TitleNumber)

	_, err = o.Submit(context.Background())
	assert.ErrorIs(t, err, draft.ErrSessionClosed)
}

// countingTransport succeeds immediately and counts sends
type countingTransport struct {
	calls int32
}

func (t *countingTransport) Send(ctx context.Context, p *Payload) (map[string]interface{}, error) {
	atomic.AddInt32(&t.calls, 1)
	return map[string]interface{}{"id": "parcel-1"}, nil
}

func TestConcurrentSubmitsSendDraftOnce(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.LoadSample())
	tr := &countingTransport{}
	o := f.orchestrator(tr)

	const n = 20
	var wg sync.WaitGroup
	var successes, inFlight, invalid int32
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res, err := o.Submit(context.Background())
			switch {
			case errors.Is(err, ErrSubmissionInFlight):
				atomic.AddInt32(&inFlight, 1)
			case err != nil:
				t.Errorf("unexpected error: %v", err)
			case res.Outcome == OutcomeSuccess:
				atomic.AddInt32(&successes, 1)
			case res.Outcome == OutcomeValidationFailure:
				atomic.AddInt32(&invalid, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&tr.calls))
	assert.Equal(t, int32(1), successes)
	assert.Equal(t, int32(n-1), inFlight+invalid)
}

func TestSubmitDuringConfirmationReportsValidationFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.LoadSample())
	tr := &countingTransport{}
	o := f.orchestrator(tr)

	res, err := o.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, res.Outcome)
	require.Equal(t, workflows.StateSuccess, o.Status().State)

	res, err = o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeValidationFailure, res.Outcome)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tr.calls))

	st := o.Status()
	assert.Equal(t, workflows.StateIdle, st.State)
	assert.Equal(t, 0, st.Progress)
	assert.Equal(t, []string{workflows.StateUploading}, o.AllowedTransitions())

	f.clock.Advance(time.Minute)
	assert.Equal(t, workflows.StateIdle, o.Status().State)
}

func TestValidationFailureReleasesUploadSlot(t *testing.T) {
	f := newFixture(t)
	tr := &countingTransport{}
	o := f.orchestrator(tr)

	res, err := o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeValidationFailure, res.Outcome)
	assert.Equal(t, []string{workflows.StateUploading}, o.AllowedTransitions())

	require.NoError(t, f.session.LoadSample())
	res, err = o.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tr.calls))
	assert.Equal(t, []string{workflows.StateIdle}, o.AllowedTransitions())
}

func TestSubmitAllowedTransitionsWhileUploading(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.LoadSample())
	tr := newBlockingTransport()
	o := f.orchestrator(tr)

	done := submitAsync(o)
	<-tr.started
	assert.Equal(t, []string{workflows.StateSuccess, workflows.StateIdle}, o.AllowedTransitions())

	tr.release <- nil
	require.NotNil(t, <-done)
}

func TestProgressCapMustStayBelowComplete(t *testing.T) {
	assert.Equal(t, 90, Config{ProgressCap: 100}.withDefaults().ProgressCap)
	assert.Equal(t, 90, Config{ProgressCap: 150}.withDefaults().ProgressCap)
	assert.Equal(t, 90, Config{ProgressCap: -1}.withDefaults().ProgressCap)
	assert.Equal(t, 99, Config{ProgressCap: 99}.withDefaults().ProgressCap)
}
