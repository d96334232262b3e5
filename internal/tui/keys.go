package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	StartStop key.Binding
	Pause     key.Binding
	Faster    key.Binding
	Slower    key.Binding
	Faster10  key.Binding
	Slower10  key.Binding
	Count     key.Binding
	CountMax  key.Binding
	Sound     key.Binding
	Music     key.Binding
	MusicUp   key.Binding
	MusicDown key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		StartStop: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "start/stop")),
		Pause:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		Faster:    key.NewBinding(key.WithKeys("up", "+", "="), key.WithHelp("↑/+", "+1 bpm")),
		Slower:    key.NewBinding(key.WithKeys("down", "-"), key.WithHelp("↓/-", "-1 bpm")),
		Faster10:  key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "+10 bpm")),
		Slower10:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "-10 bpm")),
		Count:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "counting")),
		CountMax:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "count range")),
		Sound:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sound")),
		Music:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "music")),
		MusicUp:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "music louder")),
		MusicDown: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "music quieter")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.StartStop, k.Pause, k.Faster, k.Slower, k.Sound, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.StartStop, k.Pause, k.Quit},
		{k.Faster, k.Slower, k.Faster10, k.Slower10},
		{k.Sound, k.Count, k.CountMax},
		{k.Music, k.MusicUp, k.MusicDown, k.Help},
	}
}
