package models

// MaxRating is the highest rating a film may carry.
const MaxRating = 5

// Studios lists the permitted values of Film.Studio.
var Studios = []string{"ParamountPictures", "Pixar", "SonyPictures", "UniversalPictures", "WarnerBros"}

// FilmArten lists the permitted values of Film.Art.
var FilmArten = []string{"DVD", "BlueRay", "Download", "VHS"}

// Darsteller is an actor appearing in a film.
type Darsteller struct {
	Nachname string `json:"nachname"`
	Vorname  string `json:"vorname"`
}

// Film is the document stored in the film collection.
type Film struct {
	Titel      string       `json:"titel"`
	Rating     *int         `json:"rating,omitempty"`
	Art        string       `json:"art"`
	Studio     string       `json:"studio"`
	Preis      float64      `json:"preis"`
	Rabatt     float64      `json:"rabatt"`
	Lieferbar  bool         `json:"lieferbar"`
	Datum      string       `json:"datum,omitempty"`
	Isan       string       `json:"isan,omitempty"`
	Regisseur  string       `json:"regisseur,omitempty"`
	Genre      []string     `json:"genre,omitempty"`
	Darsteller []Darsteller `json:"darsteller,omitempty"`
}

func (f Film) GetTitel() string { return f.Titel }

func (f Film) UniqueKeys() map[string]string {
	if f.Isan == "" {
		return nil
	}
	return map[string]string{"isan": f.Isan}
}

// Validate implements Entity.
func (f Film) Validate() ValidationErrors {
	err := ValidationErrors{}

	switch {
	case f.Titel == "":
		err["titel"] = "Ein Film muss einen Titel haben."
	case !startsWithWordChar(f.Titel):
		err["titel"] = "Ein Filmtitel muss mit einem Buchstaben, einer Ziffer oder _ beginnen."
	}

	if f.Rating != nil && (*f.Rating < 0 || *f.Rating > MaxRating) {
		err["rating"] = "Eine Bewertung muss zwischen 0 und 5 liegen."
	}

	switch {
	case f.Art == "":
		err["art"] = "Die Art eines Filmes muss gesetzt sein."
	case !oneOf(f.Art, FilmArten):
		err["art"] = "Die Art eines Filmes muss VHS, BlueRay, Download oder DVD sein."
	}

	switch {
	case f.Studio == "":
		err["studio"] = "Das Studio eines Filmes muss gesetzt sein."
	case !oneOf(f.Studio, Studios):
		err["studio"] = "Das Studio eines Filmes muss ParamountPictures, Pixar, SonyPictures, UniversalPictures, WarnerBros sein."
	}

	if f.Datum != "" && !isISODate(f.Datum) {
		err["datum"] = "Das Datum muss im Format yyyy-MM-dd sein."
	}

	// a missing ISAN is allowed, only a malformed one is reported
	if f.Isan != "" && !isISAN(f.Isan) {
		err["isan"] = "Die ISAN-Nummer ist nicht korrekt."
	}

	return err.orNil()
}
