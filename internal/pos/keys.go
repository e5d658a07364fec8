package pos

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the POS key bindings. Letters and digits always go to the
// focused input, so every action lives on function, control or arrow keys.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	CartUp   key.Binding
	CartDown key.Binding

	Submit    key.Binding
	NextField key.Binding
	Back      key.Binding

	Increase  key.Binding
	Decrease  key.Binding
	Remove    key.Binding
	ClearCart key.Binding
	Checkout  key.Binding
	Alerts    key.Binding

	Logout key.Binding
	Quit   key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Up:       key.NewBinding(key.WithKeys("up"), key.WithHelp("↑/↓", "results")),
	Down:     key.NewBinding(key.WithKeys("down")),
	CartUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup/pgdn", "cart")),
	CartDown: key.NewBinding(key.WithKeys("pgdown")),

	Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add")),
	NextField: key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch")),
	Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),

	Increase:  key.NewBinding(key.WithKeys("f3"), key.WithHelp("f2/f3", "qty")),
	Decrease:  key.NewBinding(key.WithKeys("f2")),
	Remove:    key.NewBinding(key.WithKeys("delete"), key.WithHelp("del", "remove")),
	ClearCart: key.NewBinding(key.WithKeys("f8"), key.WithHelp("f8", "clear")),
	Checkout:  key.NewBinding(key.WithKeys("f9", "ctrl+p"), key.WithHelp("f9", "pay")),
	Alerts:    key.NewBinding(key.WithKeys("f5"), key.WithHelp("f5", "alerts")),

	Logout: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "log out")),
	Quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

func (k KeyMap) registerHelp() []key.Binding {
	return []key.Binding{k.Up, k.Submit, k.CartUp, k.Increase, k.Remove, k.ClearCart, k.Checkout, k.Alerts, k.Logout, k.Quit}
}

func (k KeyMap) paymentHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "cash/card")),
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "charge")),
		k.Back,
	}
}
