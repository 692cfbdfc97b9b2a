package units

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message/catalog"
)

// beaufortNames holds translated Beaufort labels, indexed by force
var beaufortNames = map[language.Tag][len(beaufortLabels)]string{
	language.German: {
		"Windstille",
		"Leiser Zug",
		"Leichte Brise",
		"Schwache Brise",
		"Mäßige Brise",
		"Frische Brise",
		"Starker Wind",
		"Steifer Wind",
		"Stürmischer Wind",
		"Sturm",
		"Schwerer Sturm",
		"Orkanartiger Sturm",
		"Orkan",
	},
	language.French: {
		"Calme",
		"Très légère brise",
		"Légère brise",
		"Petite brise",
		"Jolie brise",
		"Bonne brise",
		"Vent frais",
		"Grand frais",
		"Coup de vent",
		"Fort coup de vent",
		"Tempête",
		"Violente tempête",
		"Ouragan",
	},
}

// labels is the message catalog used by every Formatter. Keys are the
// English texts; missing translations print the key.
var labels = newCatalog()

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, names := range beaufortNames {
		for force, name := range names {
			if err := b.SetString(tag, beaufortLabels[force], name); err != nil {
				panic(err)
			}
		}
	}
	return b
}
