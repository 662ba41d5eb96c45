package domain

type sourceKind int

const (
	sourceNone sourceKind = iota
	sourceRemote
	sourceInline
)

// ImageSource is either a remote location to fetch or an already-encoded
// payload. The zero value means no image was supplied.
type ImageSource struct {
	kind    sourceKind
	url     string
	encoded string
}

func RemoteImage(url string) ImageSource {
	return ImageSource{kind: sourceRemote, url: url}
}

func InlineImage(encoded string) ImageSource {
	return ImageSource{kind: sourceInline, encoded: encoded}
}

func (s ImageSource) IsZero() bool   { return s.kind == sourceNone }
func (s ImageSource) IsRemote() bool { return s.kind == sourceRemote }
func (s ImageSource) IsInline() bool { return s.kind == sourceInline }

// URL returns the remote location, or "" for inline sources.
func (s ImageSource) URL() string { return s.url }

// Encoded returns the inline payload, or "" for remote sources.
func (s ImageSource) Encoded() string { return s.encoded }

// Kind names the source for logs.
func (s ImageSource) Kind() string {
	switch s.kind {
	case sourceRemote:
		return "remote"
	case sourceInline:
		return "inline"
	default:
		return "none"
	}
}

type AnalysisRequest struct {
	Image     ImageSource
	UserEmail string
	UserName  string
}

// EncodedImage is base64 image data ready to embed in an inference request.
type EncodedImage struct {
	Data     string
	MIMEType string
}

type FoodItem struct {
	Name     string `json:"name"`
	Portion  string `json:"portion"`
	Calories int    `json:"calories"`
	Protein  int    `json:"protein"`
	Carbs    int    `json:"carbs"`
	Fat      int    `json:"fat"`
}

// NutritionResult is the shape the prompt asks the model for. Totals are
// whatever the model computed; they are not checked against Foods.
type NutritionResult struct {
	Foods         []FoodItem `json:"foods"`
	TotalCalories int        `json:"total_calories"`
	TotalProtein  int        `json:"total_protein"`
	TotalCarbs    int        `json:"total_carbs"`
	TotalFat      int        `json:"total_fat"`
}
