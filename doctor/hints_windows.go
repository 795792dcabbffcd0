package doctor

const (
	hotkeyHint = "Another application may already own this hotkey; try -hotkey with a different combination"
	focusHint  = ""
	typerHint  = "Elevated windows ignore input from non-elevated processes"
)
