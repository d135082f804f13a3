package notes

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/killallgit/scribe-api/internal/models"
)

// Generator creates clinical notes from transcripts and owns clinician edits
type Generator struct {
	repo        Repository
	transcripts TranscriptSource
	synthesizer Synthesizer
	now         func() time.Time
}

// NewGenerator creates a note generator
func NewGenerator(repo Repository, transcripts TranscriptSource, synthesizer Synthesizer) *Generator {
	return &Generator{
		repo:        repo,
		transcripts: transcripts,
		synthesizer: synthesizer,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Generate synthesizes a draft note from a transcript. When the transcript
// already has a note, that note is returned and no new row is created.
// On failure no row is written.
func (g *Generator) Generate(ctx context.Context, transcriptID, appointmentID string) (*models.ClinicalNote, error) {
	if transcriptID == "" || appointmentID == "" {
		return nil, errors.New("transcript id and appointment id are required")
	}

	transcript, err := g.transcripts.Get(ctx, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript %s: %w", transcriptID, err)
	}
	if transcript == nil {
		return nil, fmt.Errorf("%w: %s", ErrTranscriptNotFound, transcriptID)
	}

	existing, err := g.repo.GetLatestByTranscript(ctx, transcript.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing note: %w", err)
	}
	if existing != nil {
		log.Printf("[INFO] Transcript %s already has note %s, reusing it", transcript.ID, existing.ID)
		return existing, nil
	}

	log.Printf("[INFO] Generating note for transcript %s with %s", transcript.ID, g.synthesizer.Name())
	sections, err := g.synthesizer.Synthesize(ctx, transcript.Text)
	if err != nil {
		var serviceErr *ServiceError
		if errors.As(err, &serviceErr) || errors.Is(err, ErrEmptyResult) {
			return nil, err
		}
		return nil, &ServiceError{Provider: g.synthesizer.Name(), Err: err}
	}
	if sections == nil || sections.IsBlank() {
		return nil, ErrEmptyResult
	}

	note := &models.ClinicalNote{
		TranscriptID:  transcript.ID,
		AppointmentID: appointmentID,
		Subjective:    strings.TrimSpace(sections.Subjective),
		Objective:     strings.TrimSpace(sections.Objective),
		Assessment:    strings.TrimSpace(sections.Assessment),
		Plan:          strings.TrimSpace(sections.Plan),
		Model:         g.synthesizer.Name(),
	}
	if err := g.repo.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to save note for transcript %s: %w", transcript.ID, err)
	}

	log.Printf("[INFO] Note %s created for appointment %s", note.ID, appointmentID)
	return note, nil
}

// Get returns a note or ErrNoteNotFound
func (g *Generator) Get(ctx context.Context, id string) (*models.ClinicalNote, error) {
	note, err := g.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load note %s: %w", id, err)
	}
	if note == nil {
		return nil, ErrNoteNotFound
	}
	return note, nil
}

// GetLatestForAppointment returns the authoritative note for an
// appointment, or nil when none exists
func (g *Generator) GetLatestForAppointment(ctx context.Context, appointmentID string) (*models.ClinicalNote, error) {
	return g.repo.GetLatestByAppointment(ctx, appointmentID)
}

// GetLatestForTranscript returns the newest note for a transcript, or nil
func (g *Generator) GetLatestForTranscript(ctx context.Context, transcriptID string) (*models.ClinicalNote, error) {
	return g.repo.GetLatestByTranscript(ctx, transcriptID)
}

// UpdateNote merges patch into a draft note. A change to any section marks
// the note as edited by the clinician.
func (g *Generator) UpdateNote(ctx context.Context, id string, patch SectionsPatch) (*models.ClinicalNote, error) {
	note, err := g.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.Finalized {
		return nil, ErrAlreadyFinalized
	}

	updates := map[string]interface{}{}
	apply := func(column string, current string, value *string) {
		if value != nil && *value != current {
			updates[column] = *value
		}
	}
	apply("subjective", note.Subjective, patch.Subjective)
	apply("objective", note.Objective, patch.Objective)
	apply("assessment", note.Assessment, patch.Assessment)
	apply("plan", note.Plan, patch.Plan)

	if len(updates) == 0 {
		return note, nil
	}
	updates["edited_by_clinician"] = true
	updates["updated_at"] = g.now()

	changed, err := g.repo.UpdateIfDraft(ctx, id, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to update note %s: %w", id, err)
	}
	if !changed {
		// Finalized between the read and the write
		return nil, ErrAlreadyFinalized
	}

	log.Printf("[INFO] Note %s edited (%d section(s))", id, len(updates)-2)
	return g.Get(ctx, id)
}

// FinalizeNote locks a note against edits. Finalizing a finalized note
// returns it unchanged.
func (g *Generator) FinalizeNote(ctx context.Context, id string) (*models.ClinicalNote, error) {
	note, err := g.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.Finalized {
		return note, nil
	}

	now := g.now()
	changed, err := g.repo.UpdateIfDraft(ctx, id, map[string]interface{}{
		"finalized":    true,
		"finalized_at": now,
		"updated_at":   now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to finalize note %s: %w", id, err)
	}
	if changed {
		log.Printf("[INFO] Note %s finalized", id)
	}
	return g.Get(ctx, id)
}
