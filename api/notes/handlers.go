package notes

import (
	"github.com/gin-gonic/gin"

	"github.com/killallgit/scribe-api/api/types"
	notesService "github.com/killallgit/scribe-api/internal/services/notes"
)

// GetLatestForAppointment returns the newest note of an appointment
// @Summary      Get latest note for appointment
// @Tags         notes
// @Produce      json
// @Param        id path string true "Appointment ID"
// @Success      200 {object} types.NoteResponse
// @Failure      404 {object} types.ErrorResponse
// @Router       /api/v1/appointments/{id}/note [get]
func GetLatestForAppointment(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		appointmentID, ok := types.RequireParam(c, "id")
		if !ok {
			return
		}

		note, err := deps.Notes.GetLatestForAppointment(c.Request.Context(), appointmentID)
		if err != nil {
			types.SendError(c, err)
			return
		}
		if note == nil {
			types.SendError(c, notesService.ErrNoteNotFound)
			return
		}

		types.SendSuccess(c, types.NoteResponse{
			BaseResponse: types.OK("Note retrieved"),
			Note:         types.FromClinicalNote(note),
		})
	}
}

// Get returns a note by id
// @Summary      Get note
// @Tags         notes
// @Produce      json
// @Param        id path string true "Note ID"
// @Success      200 {object} types.NoteResponse
// @Failure      404 {object} types.ErrorResponse
// @Router       /api/v1/notes/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		noteID, ok := types.RequireParam(c, "id")
		if !ok {
			return
		}

		note, err := deps.Notes.Get(c.Request.Context(), noteID)
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, types.NoteResponse{
			BaseResponse: types.OK("Note retrieved"),
			Note:         types.FromClinicalNote(note),
		})
	}
}

// Update edits the sections of a draft note
// @Summary      Edit note
// @Description  Replace any of the four SOAP sections. Finalized notes cannot be edited.
// @Tags         notes
// @Accept       json
// @Produce      json
// @Param        id path string true "Note ID"
// @Param        request body types.UpdateNoteRequest true "Sections to replace"
// @Success      200 {object} types.NoteResponse
// @Failure      400 {object} types.ErrorResponse
// @Failure      404 {object} types.ErrorResponse
// @Failure      409 {object} types.ErrorResponse "Note already finalized"
// @Router       /api/v1/notes/{id} [patch]
func Update(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		noteID, ok := types.RequireParam(c, "id")
		if !ok {
			return
		}

		var req types.UpdateNoteRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}
		patch := notesService.SectionsPatch{
			Subjective: req.Subjective,
			Objective:  req.Objective,
			Assessment: req.Assessment,
			Plan:       req.Plan,
		}
		if patch.IsEmpty() {
			types.SendBadRequest(c, "At least one section is required")
			return
		}

		note, err := deps.Pipeline.UpdateNote(c.Request.Context(), noteID, patch)
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, types.NoteResponse{
			BaseResponse: types.OK("Note updated"),
			Note:         types.FromClinicalNote(note),
		})
	}
}

// Finalize locks a note against further edits
// @Summary      Finalize note
// @Description  Idempotent; finalizing a finalized note returns it unchanged
// @Tags         notes
// @Produce      json
// @Param        id path string true "Note ID"
// @Success      200 {object} types.NoteResponse
// @Failure      404 {object} types.ErrorResponse
// @Router       /api/v1/notes/{id}/finalize [post]
func Finalize(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		noteID, ok := types.RequireParam(c, "id")
		if !ok {
			return
		}

		note, err := deps.Pipeline.FinalizeNote(c.Request.Context(), noteID)
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendSuccess(c, types.NoteResponse{
			BaseResponse: types.OK("Note finalized"),
			Note:         types.FromClinicalNote(note),
		})
	}
}
