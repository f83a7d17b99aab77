package model

// Match is one location of a reference image on screen. X and Y are the
// absolute screen coordinates of the matched region's center.
type Match struct {
	X          int     `yaml:"x"                  json:"x"`
	Y          int     `yaml:"y"                  json:"y"`
	Confidence float64 `yaml:"confidence"         json:"confidence"`
	Bounds     [4]int  `yaml:"bounds,flow"        json:"bounds"`
	Template   string  `yaml:"template,omitempty" json:"template,omitempty"`
}

// ByConfidence sorts matches by confidence, highest first.
type ByConfidence []Match

func (m ByConfidence) Len() int           { return len(m) }
func (m ByConfidence) Swap(i, j int)      { m[i], m[j] = m[j], m[i] }
func (m ByConfidence) Less(i, j int) bool { return m[i].Confidence > m[j].Confidence }
