package monitor

// Config points at the data directory and the live-reloaded settings file.
type Config struct {
	DataDir        string `json:"dataDir"`
	SettingsConfig string `json:"settingsConfig"`
}

// Settings is the user-driven configuration stored at monitor.yml. It is
// live-reloaded: changing the filter or the displayed projections takes
// effect without restarting the monitor.
type Settings struct {
	// Filter is a device filter expression, e.g.
	// `type(joystick) and vendor(0x054c)`. Empty matches every device.
	Filter string `json:"filter"`
	// Types limits which device classes are subscribed at all.
	Types []string `json:"types"`

	ShowRaw      bool `json:"showRaw"`
	ShowGeneric  bool `json:"showGeneric"`
	ShowJoystick bool `json:"showJoystick"`
	ShowKeyboard bool `json:"showKeyboard"`
	ShowMouse    bool `json:"showMouse"`
}

func DefaultSettings() Settings {
	return Settings{
		Types:        []string{"mouse", "keyboard", "joystick", "gamepad"},
		ShowJoystick: true,
		ShowKeyboard: true,
		ShowMouse:    true,
	}
}
