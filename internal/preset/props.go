package preset

import "fmt"

// Props are the persisted UI settings of a preset widget.
type Props struct {
	BubbleSize  int    `json:"bubble_size" yaml:"bubble_size"`
	ActiveColor string `json:"active_color" yaml:"active_color"`
	StoredColor string `json:"stored_color" yaml:"stored_color"`
	EmptyColor  string `json:"empty_color" yaml:"empty_color"`
	BgColor     string `json:"bg_color" yaml:"bg_color"`
	TextColor   string `json:"text_color" yaml:"text_color"`
	FontFamily  string `json:"font_family" yaml:"font_family"`
	FontSize    int    `json:"font_size" yaml:"font_size"`
	FontFace    string `json:"font_face" yaml:"font_face"`
}

var (
	FontFamilies = []string{"Lato", "Georgia", "Times New Roman", "Arial", "Tahoma", "Verdana", "Courier New"}
	FontFaces    = []string{"regular", "bold", "italic", "bold italic"}
)

// DefaultProps returns the widget defaults.
func DefaultProps() Props {
	return Props{
		BubbleSize:  8,
		ActiveColor: "#CEE5E8",
		StoredColor: "#7D7F84",
		EmptyColor:  "#595959",
		BgColor:     "rgb(51, 51, 51)",
		TextColor:   "rgb(33, 33, 33)",
		FontFamily:  "Lato",
		FontSize:    11,
		FontFace:    "regular",
	}
}

// WithDefaults fills every zero field of p from DefaultProps.
func (p Props) WithDefaults() Props {
	d := DefaultProps()
	if p.BubbleSize == 0 {
		p.BubbleSize = d.BubbleSize
	}
	if p.ActiveColor == "" {
		p.ActiveColor = d.ActiveColor
	}
	if p.StoredColor == "" {
		p.StoredColor = d.StoredColor
	}
	if p.EmptyColor == "" {
		p.EmptyColor = d.EmptyColor
	}
	if p.BgColor == "" {
		p.BgColor = d.BgColor
	}
	if p.TextColor == "" {
		p.TextColor = d.TextColor
	}
	if p.FontFamily == "" {
		p.FontFamily = d.FontFamily
	}
	if p.FontSize == 0 {
		p.FontSize = d.FontSize
	}
	if p.FontFace == "" {
		p.FontFace = d.FontFace
	}
	return p
}

// Validate reports every out-of-range prop.
func (p Props) Validate() []string {
	var errs []string
	if p.BubbleSize <= 0 {
		errs = append(errs, fmt.Sprintf("bubble_size must be positive, got %d", p.BubbleSize))
	}
	if p.FontSize <= 0 {
		errs = append(errs, fmt.Sprintf("font_size must be positive, got %d", p.FontSize))
	}
	if !oneOf(p.FontFamily, FontFamilies) {
		errs = append(errs, fmt.Sprintf("font_family %q is not one of %v", p.FontFamily, FontFamilies))
	}
	if !oneOf(p.FontFace, FontFaces) {
		errs = append(errs, fmt.Sprintf("font_face %q is not one of %v", p.FontFace, FontFaces))
	}
	return errs
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
