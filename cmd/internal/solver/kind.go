package solver

import "strings"

// Kind is the kind of submitted problem.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindPDF   Kind = "pdf"
	KindVideo Kind = "video"
)

// ParseKind maps a form value onto a Kind. An empty value means text.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindText, nil
	case KindText, KindImage, KindPDF, KindVideo:
		return k, nil
	default:
		return "", ErrUnsupportedKind
	}
}

// noun is the human name used in "Please upload ... first." messages.
func (k Kind) noun() string {
	switch k {
	case KindImage:
		return "an image"
	case KindPDF:
		return "a PDF"
	case KindVideo:
		return "a video"
	default:
		return "a file"
	}
}

func (k Kind) needsUpload() bool {
	return k == KindImage || k == KindPDF
}
