package recorder

// State is one point in the facade's state machine: Idle -> Starting ->
// Running <-> Paused -> Disposed (spec §4.8).
type State string

const (
	StateIdle      State = "idle"
	StateStarting  State = "starting"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateDisposed  State = "disposed"
)

// ErrorSource tags which subsystem raised an error event (spec §7:
// "error carries a source tag").
type ErrorSource string

const (
	SourceCapture  ErrorSource = "capture"
	SourceEncoder  ErrorSource = "encoder"
	SourceAudio    ErrorSource = "audio"
	SourceSnapshot ErrorSource = "snapshot"
	SourceFacade   ErrorSource = "facade"
)

// ErrorEvent is the payload of the error event.
type ErrorEvent struct {
	Source  ErrorSource
	Message string
	Err     error
	Fatal   bool
}

// ClipSavedEvent is the payload of the clip_saved event.
type ClipSavedEvent struct {
	Filename string
	Path     string
	Bytes    int64
	SaveTime float64 // seconds
}

// StateChangedEvent is the payload of the recording_state_changed event.
type StateChangedEvent struct {
	From State
	To   State
}
