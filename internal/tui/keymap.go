package tui

// Key binding constants used in handleKey. The note keys come from the keyboard package.
const (
	KeyQuit       = "q"
	KeyCtrlC      = "ctrl+c"
	KeyPrimary    = " "
	KeyReset      = "backspace"
	KeyResetAlt   = "delete"
	KeyOctaveDown = "z"
	KeyOctaveUp   = "x"
	KeyLeft       = "left"
	KeyRight      = "right"
	KeySave       = "v"
)
