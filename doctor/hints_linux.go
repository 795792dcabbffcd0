package doctor

const (
	hotkeyHint = "Fix with: sudo usermod -aG input $USER (then log out and back in)"
	focusHint  = "Install xdotool; Wayland sessions need XWayland windows"
	typerHint  = "Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput"
)
