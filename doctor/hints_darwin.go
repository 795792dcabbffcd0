package doctor

const (
	hotkeyHint = "Grant Input Monitoring to your terminal in System Settings > Privacy & Security"
	focusHint  = "Grant Automation access for System Events to your terminal"
	typerHint  = "Grant Accessibility access to your terminal in System Settings > Privacy & Security"
)
