package scenario

// ParameterSet is one row of the scenario matrix. It is either Enabled or
// Disabled; a disabled set carries no expected text.
type ParameterSet interface {
	Action() string
	Enabled() bool
	ExpectedText() string
	isParameterSet()
}

// Enabled turns the setting on and expects Text on the storefront.
type Enabled struct {
	Label string
	Text  string
}

func (e Enabled) Action() string       { return e.Label }
func (e Enabled) Enabled() bool        { return true }
func (e Enabled) ExpectedText() string { return e.Text }
func (Enabled) isParameterSet()        {}

// Disabled turns the setting off and expects nothing to render.
type Disabled struct {
	Label string
}

func (d Disabled) Action() string       { return d.Label }
func (d Disabled) Enabled() bool        { return false }
func (d Disabled) ExpectedText() string { return "" }
func (Disabled) isParameterSet()        {}

// OnlyEnabled is a step condition that includes the step for enabled sets only.
func OnlyEnabled(set ParameterSet) bool { return set.Enabled() }
