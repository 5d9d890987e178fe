package appointments

// Physician is an entry of the clinic roster shown in appointment forms.
type Physician struct {
	Name string `json:"name"`
}

var roster = []Physician{
	{Name: "John Green"},
	{Name: "Leila Cameron"},
	{Name: "David Livingston"},
	{Name: "Evan Peter"},
	{Name: "Jane Powell"},
	{Name: "Alex Ramirez"},
	{Name: "Jasmine Lee"},
	{Name: "Alyana Cruz"},
	{Name: "Hardik Sharma"},
}

// Physicians returns a copy of the roster.
func Physicians() []Physician {
	out := make([]Physician, len(roster))
	copy(out, roster)
	return out
}
