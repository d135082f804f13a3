package types

import (
	"github.com/killallgit/scribe-api/internal/database"
	"github.com/killallgit/scribe-api/internal/services/appointments"
	"github.com/killallgit/scribe-api/internal/services/recordings"
)

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB           *database.DB
	Pipeline     PipelineService
	Recordings   recordings.Service
	Transcripts  TranscriptReader
	Notes        NoteReader
	Appointments appointments.Directory
	Version      string
}
