package notes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/killallgit/scribe-api/internal/database"
	"github.com/killallgit/scribe-api/internal/models"
)

type fakeSynthesizer struct {
	calls    int
	sections *Sections
	errs     []error // consumed one per call before sections are returned
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, transcriptText string) (*Sections, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.sections, nil
}

func (f *fakeSynthesizer) Name() string { return "fake-model" }

// dbTranscripts reads transcripts straight from the table
type dbTranscripts struct {
	db *database.DB
}

func (d dbTranscripts) Get(ctx context.Context, id string) (*models.Transcript, error) {
	var transcript models.Transcript
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&transcript).Error; err != nil {
		return nil, nil
	}
	return &transcript, nil
}

func fullSections() *Sections {
	return &Sections{
		Subjective: "Client reports better sleep.",
		Objective:  "Calm affect, good eye contact.",
		Assessment: "Improving mood.",
		Plan:       "Continue weekly sessions.",
	}
}

type fixture struct {
	db        *database.DB
	repo      Repository
	synth     *fakeSynthesizer
	generator *Generator
}

func setup(t *testing.T) *fixture {
	db, err := database.Initialize(":memory:", false)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db.DB)
	synth := &fakeSynthesizer{sections: fullSections()}
	return &fixture{
		db:        db,
		repo:      repo,
		synth:     synth,
		generator: NewGenerator(repo, dbTranscripts{db: db}, synth),
	}
}

func (f *fixture) transcript(t *testing.T) *models.Transcript {
	transcript := &models.Transcript{RecordingID: "rec-1", Text: "we talked about sleep"}
	require.NoError(t, f.db.Create(transcript).Error)
	return transcript
}

func (f *fixture) draft(t *testing.T) *models.ClinicalNote {
	note, err := f.generator.Generate(context.Background(), f.transcript(t).ID, "appt-1")
	require.NoError(t, err)
	return note
}

func TestGenerate(t *testing.T) {
	f := setup(t)
	transcript := f.transcript(t)

	note, err := f.generator.Generate(context.Background(), transcript.ID, "appt-1")
	require.NoError(t, err)

	assert.Equal(t, transcript.ID, note.TranscriptID)
	assert.Equal(t, "appt-1", note.AppointmentID)
	assert.Equal(t, "Client reports better sleep.", note.Subjective)
	assert.Equal(t, "Continue weekly sessions.", note.Plan)
	assert.False(t, note.Finalized)
	assert.False(t, note.EditedByClinician)
	assert.Equal(t, "fake-model", note.Model)
}

func TestGenerate_FailuresCreateNoRowAndRetrySucceeds(t *testing.T) {
	f := setup(t)
	transcript := f.transcript(t)
	f.synth.errs = []error{errors.New("upstream 500"), ErrEmptyResult}

	_, err := f.generator.Generate(context.Background(), transcript.ID, "appt-1")
	assert.ErrorIs(t, err, ErrService)
	_, err = f.generator.Generate(context.Background(), transcript.ID, "appt-1")
	assert.ErrorIs(t, err, ErrEmptyResult)

	count, err := f.repo.CountByTranscript(context.Background(), transcript.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	note, err := f.generator.Generate(context.Background(), transcript.ID, "appt-1")
	require.NoError(t, err)
	assert.NotEmpty(t, note.ID)

	count, err = f.repo.CountByTranscript(context.Background(), transcript.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGenerate_BlankSections(t *testing.T) {
	f := setup(t)
	f.synth.sections = &Sections{Subjective: " ", Plan: "\n"}

	_, err := f.generator.Generate(context.Background(), f.transcript(t).ID, "appt-1")
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestGenerate_ReusesExistingNote(t *testing.T) {
	f := setup(t)
	transcript := f.transcript(t)

	first, err := f.generator.Generate(context.Background(), transcript.ID, "appt-1")
	require.NoError(t, err)
	second, err := f.generator.Generate(context.Background(), transcript.ID, "appt-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.synth.calls)
}

func TestGenerate_MissingTranscript(t *testing.T) {
	f := setup(t)
	_, err := f.generator.Generate(context.Background(), "missing", "appt-1")
	assert.ErrorIs(t, err, ErrTranscriptNotFound)
	assert.Zero(t, f.synth.calls)
}

func TestUpdateNote(t *testing.T) {
	f := setup(t)
	note := f.draft(t)
	time.Sleep(2 * time.Millisecond)

	plan := "Increase to twice weekly."
	updated, err := f.generator.UpdateNote(context.Background(), note.ID, SectionsPatch{Plan: &plan})
	require.NoError(t, err)

	assert.Equal(t, plan, updated.Plan)
	assert.Equal(t, note.Subjective, updated.Subjective)
	assert.True(t, updated.EditedByClinician)
	assert.True(t, updated.UpdatedAt.After(note.UpdatedAt))
}

func TestUpdateNote_UnchangedContentIsNotAnEdit(t *testing.T) {
	f := setup(t)
	note := f.draft(t)

	same := note.Subjective
	updated, err := f.generator.UpdateNote(context.Background(), note.ID, SectionsPatch{Subjective: &same})
	require.NoError(t, err)
	assert.False(t, updated.EditedByClinician)

	updated, err = f.generator.UpdateNote(context.Background(), note.ID, SectionsPatch{})
	require.NoError(t, err)
	assert.False(t, updated.EditedByClinician)
}

func TestUpdateNote_FinalizedIsRejected(t *testing.T) {
	f := setup(t)
	note := f.draft(t)
	_, err := f.generator.FinalizeNote(context.Background(), note.ID)
	require.NoError(t, err)

	edit := "rewritten"
	_, err = f.generator.UpdateNote(context.Background(), note.ID, SectionsPatch{Subjective: &edit, Plan: &edit})
	assert.ErrorIs(t, err, ErrAlreadyFinalized)

	stored, err := f.generator.Get(context.Background(), note.ID)
	require.NoError(t, err)
	assert.Equal(t, note.Subjective, stored.Subjective)
	assert.Equal(t, note.Plan, stored.Plan)
	assert.False(t, stored.EditedByClinician)
}

func TestFinalizeNote_Idempotent(t *testing.T) {
	f := setup(t)
	note := f.draft(t)

	first, err := f.generator.FinalizeNote(context.Background(), note.ID)
	require.NoError(t, err)
	require.True(t, first.Finalized)
	require.NotNil(t, first.FinalizedAt)

	second, err := f.generator.FinalizeNote(context.Background(), note.ID)
	require.NoError(t, err)
	assert.True(t, second.Finalized)
	assert.True(t, first.FinalizedAt.Equal(*second.FinalizedAt))

	var count int64
	require.NoError(t, f.db.Model(&models.ClinicalNote{}).Where("finalized = ?", true).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFinalizeNote_NotFound(t *testing.T) {
	f := setup(t)
	_, err := f.generator.FinalizeNote(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNoteNotFound)

	_, err = f.generator.UpdateNote(context.Background(), "missing", SectionsPatch{})
	assert.ErrorIs(t, err, ErrNoteNotFound)
}

func TestGetLatestForAppointment(t *testing.T) {
	f := setup(t)

	latest, err := f.generator.GetLatestForAppointment(context.Background(), "appt-1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	f.draft(t)
	time.Sleep(2 * time.Millisecond)
	second := f.draft(t)

	latest, err = f.generator.GetLatestForAppointment(context.Background(), "appt-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)
}
