package orchestrator

import "markestedt/pasteimagepath/platform"

// Intent is a request from a UI surface. Intents are applied on the event
// loop in the order they are sent.
type Intent interface {
	intent()
}

// RecordHotkey starts capture mode, cancelling any capture in progress
type RecordHotkey struct{}

// CancelRecording aborts capture mode
type CancelRecording struct{}

// SelectRecentImage pastes a previously saved image path
type SelectRecentImage struct {
	Path string
}

// SetInsertSpace toggles the leading space before pasted paths
type SetInsertSpace struct {
	Enabled bool
}

// SetQuotePaths toggles shell quoting of pasted paths
type SetQuotePaths struct {
	Enabled bool
}

// SetHotkey rebinds to an explicit combination. A rejected binding keeps
// the previous one.
type SetHotkey struct {
	Binding platform.Binding
}

// PasteNow runs the press pipeline without waiting for modifiers
type PasteNow struct{}

// RefreshStatus re-reads settings and permissions into the status
type RefreshStatus struct{}

func (RecordHotkey) intent()      {}
func (CancelRecording) intent()   {}
func (SelectRecentImage) intent() {}
func (SetInsertSpace) intent()    {}
func (SetQuotePaths) intent()     {}
func (SetHotkey) intent()         {}
func (PasteNow) intent()          {}
func (RefreshStatus) intent()     {}
