// Package institution defines core types shared across subsystems.
package institution

// Type tags an institution record as a school or a kindergarten.
type Type string

// Institution types persisted in the record store. The values are the
// Russian display names used on the source site.
const (
	TypeSchool       Type = "Школа"
	TypeKindergarten Type = "Детский сад"
)

// NoNumber is the sentinel stored when a detail page carries no № mark.
const NoNumber = "Без номера"

// Record is one catalog entry for a school or kindergarten. The ID is
// derived from the last path segment of the detail URL and is unique
// within the store; a record is immutable once appended.
type Record struct {
	ID            string `json:"id"`
	Type          Type   `json:"type"`
	Number        string `json:"number"`
	StudentsCount string `json:"students_count"`
	District      string `json:"district"`
	URL           string `json:"url"`
}

// District maps a short request code (AVIA, VAHI, ...) to the display
// name that appears on the source site and in stored records.
type District struct {
	Code string
	Name string
}

// Districts is the fixed set of administrative sub-regions the walk is
// scoped to, in keyboard/display order.
var Districts = []District{
	{Code: "AVIA", Name: "Авиастроительный"},
	{Code: "VAHI", Name: "Вахитовский"},
	{Code: "KIRO", Name: "Кировский"},
	{Code: "MOSC", Name: "Московский"},
	{Code: "NOVO", Name: "Ново-Савиновский"},
	{Code: "PRIV", Name: "Приволжский"},
	{Code: "SOVI", Name: "Советский"},
}

// DistrictByCode resolves a request code to its district.
func DistrictByCode(code string) (District, bool) {
	for _, d := range Districts {
		if d.Code == code {
			return d, true
		}
	}
	return District{}, false
}

// DistrictNames returns the display names of the full fixed set.
func DistrictNames() []string {
	names := make([]string, 0, len(Districts))
	for _, d := range Districts {
		names = append(names, d.Name)
	}
	return names
}

// NamesFromCodes maps request codes to display names, silently dropping
// codes outside the fixed set.
func NamesFromCodes(codes []string) []string {
	var names []string
	for _, code := range codes {
		if d, ok := DistrictByCode(code); ok {
			names = append(names, d.Name)
		}
	}
	return names
}

// RunSummary aggregates per-branch outcomes of one crawl so behavior is
// observable without log inspection.
type RunSummary struct {
	Discovered int `json:"discovered"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}
