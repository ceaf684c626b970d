package assessment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/clinimetric/clinimetric/internal/domain/catalog"
)

// ── Mock Repositories ──

type mockSessionRepo struct {
	data map[uuid.UUID]*Session
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{data: make(map[uuid.UUID]*Session)}
}

func (m *mockSessionRepo) Create(_ context.Context, s *Session) error {
	m.data[s.ID] = s
	return nil
}
func (m *mockSessionRepo) GetByID(_ context.Context, id uuid.UUID) (*Session, error) {
	if s, ok := m.data[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("not found")
}
func (m *mockSessionRepo) Update(_ context.Context, s *Session) error {
	if _, ok := m.data[s.ID]; !ok {
		return fmt.Errorf("not found")
	}
	m.data[s.ID] = s
	return nil
}
func (m *mockSessionRepo) List(_ context.Context, limit, offset int) ([]*Session, int, error) {
	var out []*Session
	for _, s := range m.data {
		out = append(out, s)
	}
	return out, len(out), nil
}
func (m *mockSessionRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	var out []*Session
	for _, s := range m.data {
		if s.PatientID == patientID {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

type mockResultRepo struct {
	data map[uuid.UUID]*ScoredResult
}

func newMockResultRepo() *mockResultRepo {
	return &mockResultRepo{data: make(map[uuid.UUID]*ScoredResult)}
}

func (m *mockResultRepo) Create(_ context.Context, r *ScoredResult) error {
	m.data[r.ID] = r
	return nil
}
func (m *mockResultRepo) GetByID(_ context.Context, id uuid.UUID) (*ScoredResult, error) {
	if r, ok := m.data[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("not found")
}
func (m *mockResultRepo) GetBySession(_ context.Context, sessionID uuid.UUID) (*ScoredResult, error) {
	for _, r := range m.data {
		if r.SessionID == sessionID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("not found")
}
func (m *mockResultRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*ScoredResult, int, error) {
	var out []*ScoredResult
	for _, r := range m.data {
		out = append(out, r)
	}
	return out, len(out), nil
}

type mockPatientDirectory struct {
	data map[uuid.UUID]*PatientRef
}

func newMockPatientDirectory() *mockPatientDirectory {
	return &mockPatientDirectory{data: make(map[uuid.UUID]*PatientRef)}
}

func (m *mockPatientDirectory) GetPatient(_ context.Context, id uuid.UUID) (*PatientRef, error) {
	if p, ok := m.data[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("not found")
}

type mockScaleRepo struct {
	data map[uuid.UUID]*catalog.ScaleDefinition
}

func (m *mockScaleRepo) Create(_ context.Context, d *catalog.ScaleDefinition) error {
	m.data[d.ID] = d
	return nil
}
func (m *mockScaleRepo) GetByID(_ context.Context, id uuid.UUID) (*catalog.ScaleDefinition, error) {
	if d, ok := m.data[id]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("not found")
}
func (m *mockScaleRepo) GetByCode(_ context.Context, code string) (*catalog.ScaleDefinition, error) {
	for _, d := range m.data {
		if d.Code == code {
			return d, nil
		}
	}
	return nil, fmt.Errorf("not found")
}
func (m *mockScaleRepo) Update(_ context.Context, d *catalog.ScaleDefinition) error {
	m.data[d.ID] = d
	return nil
}
func (m *mockScaleRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.data, id)
	return nil
}
func (m *mockScaleRepo) List(_ context.Context, limit, offset int) ([]*catalog.ScaleDefinition, int, error) {
	return nil, 0, nil
}
func (m *mockScaleRepo) ListPublished(_ context.Context, limit, offset int) ([]*catalog.ScaleDefinition, int, error) {
	return nil, 0, nil
}

// ── Fixture ──

type fixture struct {
	svc      *Service
	scale    *catalog.ScaleDefinition
	patient  *PatientRef
	sessions *mockSessionRepo
	results  *mockResultRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	scale := testDefinition()
	catalogSvc := catalog.NewService(&mockScaleRepo{
		data: map[uuid.UUID]*catalog.ScaleDefinition{scale.ID: scale},
	})

	patient := &PatientRef{ID: uuid.New(), DisplayName: "Alex Doe"}
	patients := newMockPatientDirectory()
	patients.data[patient.ID] = patient

	sessions := newMockSessionRepo()
	results := newMockResultRepo()

	svc := NewService(sessions, results, patients, catalogSvc, NewEngine(nil), nil)
	return &fixture{svc: svc, scale: scale, patient: patient, sessions: sessions, results: results}
}

func (f *fixture) startConfigured(t *testing.T) *Session {
	t.Helper()
	ctx := context.Background()
	sess, err := f.svc.StartSession(ctx, f.scale.ID, "dr-a")
	if err != nil {
		t.Fatal(err)
	}
	sess, err = f.svc.ConfigureSession(ctx, sess.ID, "dr-a", ConfigureInput{
		PatientID: f.patient.ID,
		Mode:      catalog.ModeSelf,
	})
	if err != nil {
		t.Fatal(err)
	}
	return sess
}

// ── Tests ──

func TestStartSessionRequiresPublishedScale(t *testing.T) {
	f := newFixture(t)
	f.scale.Published = false

	_, err := f.svc.StartSession(context.Background(), f.scale.ID, "dr-a")
	if !errors.Is(err, catalog.ErrNotAdministrable) {
		t.Fatalf("expected ErrNotAdministrable, got %v", err)
	}
}

func TestConfigureSessionBindsPatientFromDirectory(t *testing.T) {
	f := newFixture(t)
	sess := f.startConfigured(t)

	if sess.PatientName != "Alex Doe" {
		t.Fatalf("expected directory display name, got %q", sess.PatientName)
	}
	if sess.Status != StatusInProgress {
		t.Fatalf("expected in progress, got %s", sess.Status)
	}
}

func TestConfigureSessionUnknownPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.StartSession(ctx, f.scale.ID, "dr-a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.ConfigureSession(ctx, sess.ID, "dr-a", ConfigureInput{
		PatientID: uuid.New(),
		Mode:      catalog.ModeSelf,
	}); err == nil {
		t.Fatal("expected unknown patient to fail")
	}
}

func TestRecordResponseResolvesVocabulary(t *testing.T) {
	f := newFixture(t)
	sess := f.startConfigured(t)
	ctx := context.Background()

	sess, err := f.svc.RecordResponse(ctx, sess.ID, "dr-a", 1, "2")
	if err != nil {
		t.Fatal(err)
	}
	got := sess.Responses[1]
	if got.Score != 2 || got.Label != "More than half the days" {
		t.Fatalf("expected resolved option, got %+v", got)
	}
	if sess.Card.Item != 2 {
		t.Fatalf("expected auto-advance to item 2, got %d", sess.Card.Item)
	}

	if _, err := f.svc.RecordResponse(ctx, sess.ID, "dr-a", 2, "bogus"); err == nil {
		t.Fatal("expected unknown option value to fail")
	}
}

func TestSessionOwnership(t *testing.T) {
	f := newFixture(t)
	sess := f.startConfigured(t)
	ctx := context.Background()

	if _, err := f.svc.RecordResponse(ctx, sess.ID, "dr-b", 1, "1"); !errors.Is(err, ErrNotSessionOwner) {
		t.Fatalf("expected ErrNotSessionOwner, got %v", err)
	}
}

func TestCompleteAndScore(t *testing.T) {
	f := newFixture(t)
	sess := f.startConfigured(t)
	ctx := context.Background()

	// Premature scoring request.
	if _, err := f.svc.CompleteAndScore(ctx, sess.ID, "dr-a"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	for n, v := range map[int]string{1: "2", 2: "2", 3: "3"} {
		if _, err := f.svc.RecordResponse(ctx, sess.ID, "dr-a", n, v); err != nil {
			t.Fatal(err)
		}
	}

	result, err := f.svc.CompleteAndScore(ctx, sess.ID, "dr-a")
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 7 || result.Interp.Severity != "severe" {
		t.Fatalf("expected 7/severe, got %d/%s", result.Total, result.Interp.Severity)
	}
	if result.SessionID != sess.ID {
		t.Fatal("result must reference its session")
	}

	stored, err := f.svc.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != StatusCompleted || stored.Card.Kind != CardResults {
		t.Fatalf("expected completed on results card, got %s/%s", stored.Status, stored.Card.Kind)
	}

	// Re-requesting returns the persisted result unchanged.
	again, err := f.svc.CompleteAndScore(ctx, sess.ID, "dr-a")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != result.ID {
		t.Fatal("expected the same stored result on re-request")
	}
}

func TestCompleteAndScoreSurfacesBandingDefect(t *testing.T) {
	f := newFixture(t)
	sess := f.startConfigured(t)
	ctx := context.Background()

	f.scale.Rules = f.scale.Rules[:2]

	for n := 1; n <= 3; n++ {
		if _, err := f.svc.RecordResponse(ctx, sess.ID, "dr-a", n, "3"); err != nil {
			t.Fatal(err)
		}
	}

	result, err := f.svc.CompleteAndScore(ctx, sess.ID, "dr-a")
	if !errors.Is(err, ErrNoMatchingInterpretation) {
		t.Fatalf("expected ErrNoMatchingInterpretation, got %v", err)
	}
	if result == nil || !result.Interp.Defect {
		t.Fatal("expected the persisted defect result alongside the error")
	}
	if _, repoErr := f.results.GetBySession(ctx, sess.ID); repoErr != nil {
		t.Fatal("defect result must still be persisted")
	}
}

func TestCancelSession(t *testing.T) {
	f := newFixture(t)
	sess := f.startConfigured(t)
	ctx := context.Background()

	if _, err := f.svc.Cancel(ctx, sess.ID, "dr-a"); err != nil {
		t.Fatal(err)
	}
	stored, _ := f.svc.GetSession(ctx, sess.ID)
	if stored.Status != StatusAbandoned {
		t.Fatalf("expected abandoned, got %s", stored.Status)
	}
	if _, err := f.svc.CompleteAndScore(ctx, sess.ID, "dr-a"); err == nil {
		t.Fatal("abandoned sessions must not score")
	}
}

func TestListSessionsByPatient(t *testing.T) {
	f := newFixture(t)
	f.startConfigured(t)
	f.startConfigured(t)

	items, total, err := f.svc.ListSessionsByPatient(context.Background(), f.patient.ID, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 sessions, got %d", total)
	}
}
