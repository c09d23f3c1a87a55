package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// specialtySynonyms maps cleaned spellings onto a canonical key. Keys are
// already lowercased, accent-free and single-spaced.
var specialtySynonyms = map[string]string{
	"clinica medica":   "clinica medica",
	"clinica geral":    "clinica medica",
	"clinico geral":    "clinica medica",
	"clinica":          "clinica medica",
	"medicina interna": "clinica medica",

	"pediatria":  "pediatria",
	"pediatra":   "pediatria",
	"pediatrico": "pediatria",

	"ginecologia e obstetricia": "ginecologia e obstetricia",
	"ginecologia obstetricia":   "ginecologia e obstetricia",
	"ginecologia":               "ginecologia e obstetricia",
	"ginecologista":             "ginecologia e obstetricia",
	"obstetricia":               "ginecologia e obstetricia",
	"obstetra":                  "ginecologia e obstetricia",
	"go":                        "ginecologia e obstetricia",
	"g o":                       "ginecologia e obstetricia",

	"ortopedia":                 "ortopedia",
	"ortopedista":               "ortopedia",
	"ortopedia e traumatologia": "ortopedia",
	"traumatologia":             "ortopedia",

	"cardiologia":   "cardiologia",
	"cardiologista": "cardiologia",
	"cardio":        "cardiologia",

	"anestesiologia": "anestesiologia",
	"anestesista":    "anestesiologia",
	"anestesia":      "anestesiologia",

	"cirurgia geral":  "cirurgia geral",
	"cirurgiao geral": "cirurgia geral",
	"cirurgia":        "cirurgia geral",

	"medicina intensiva": "medicina intensiva",
	"terapia intensiva":  "medicina intensiva",
	"intensivista":       "medicina intensiva",
	"uti":                "medicina intensiva",

	"medicina de emergencia": "medicina de emergencia",
	"emergencia":             "medicina de emergencia",
	"emergencista":           "medicina de emergencia",
	"pronto socorro":         "medicina de emergencia",
	"ps":                     "medicina de emergencia",
}

var specialtyLabels = map[string]string{
	"clinica medica":            "Clínica Médica",
	"pediatria":                 "Pediatria",
	"ginecologia e obstetricia": "Ginecologia e Obstetrícia",
	"ortopedia":                 "Ortopedia",
	"cardiologia":               "Cardiologia",
	"anestesiologia":            "Anestesiologia",
	"cirurgia geral":            "Cirurgia Geral",
	"medicina intensiva":        "Medicina Intensiva",
	"medicina de emergencia":    "Medicina de Emergência",
}

// NormalizeSpecialtyName folds a free-text specialty name into a comparison
// key: accents and punctuation are dropped, case and spacing are collapsed and
// known synonyms map onto one canonical key. Unknown names return the cleaned
// form unchanged.
func NormalizeSpecialtyName(name string) string {
	cleaned := cleanSpecialtyText(name)
	if canonical, ok := specialtySynonyms[cleaned]; ok {
		return canonical
	}
	return cleaned
}

// CanonicalSpecialtyLabel returns the display label for a specialty name.
// Names outside the synonym table keep their trimmed original spelling.
func CanonicalSpecialtyLabel(name string) string {
	if label, ok := specialtyLabels[NormalizeSpecialtyName(name)]; ok {
		return label
	}
	return strings.Join(strings.Fields(name), " ")
}

func cleanSpecialtyText(name string) string {
	// transform chains keep internal state so one is built per call.
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripAccents, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(' ')
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
