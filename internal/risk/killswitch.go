package risk

import "os"

// KillSwitch halts new entries while a marker file exists.
// Polled once per tick, never cached across ticks.
type KillSwitch struct {
	path string
}

// NewKillSwitch creates a kill switch watching the given marker path.
// An empty path disables the switch.
func NewKillSwitch(path string) *KillSwitch {
	return &KillSwitch{path: path}
}

// Active reports whether the marker file currently exists.
func (k *KillSwitch) Active() bool {
	if k.path == "" {
		return false
	}
	_, err := os.Stat(k.path)
	return err == nil
}
