package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all key bindings
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Tab       key.Binding
	Enter     key.Binding
	Add       key.Binding
	Edit      key.Binding
	Done      key.Binding
	Delete    key.Binding
	Project   key.Binding
	Priority1 key.Binding
	Priority2 key.Binding
	Priority3 key.Binding
	Filter    key.Binding
	AllTasks  key.Binding
	Generate  key.Binding
	ReadAll   key.Binding
	Help      key.Binding
	Quit      key.Binding
	Escape    key.Binding
	Refresh   key.Binding
}

var keys = keyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left pane")),
	Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right pane")),
	Tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
	Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select/read")),
	Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add task")),
	Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit task")),
	Done:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "toggle done")),
	Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Project:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "new project")),
	Priority1: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "high priority")),
	Priority2: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "medium priority")),
	Priority3: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "low priority")),
	Filter:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	AllTasks:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "all projects")),
	Generate:  key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "generate briefing")),
	ReadAll:   key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "mark all read")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Escape:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Refresh:   key.NewBinding(key.WithKeys("R", "r"), key.WithHelp("r", "refresh/sync")),
}

// helpGroups lists bindings in the order shown on the help screen
func helpGroups() [][]key.Binding {
	return [][]key.Binding{
		{keys.Up, keys.Down, keys.Left, keys.Right, keys.Tab, keys.Enter},
		{keys.Add, keys.Edit, keys.Done, keys.Delete, keys.Project, keys.Priority1, keys.Priority2, keys.Priority3},
		{keys.Filter, keys.AllTasks, keys.Generate, keys.ReadAll, keys.Refresh},
		{keys.Help, keys.Escape, keys.Quit},
	}
}
