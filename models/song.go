package models

import "fmt"

// Labels lists the permitted values of Song.Label.
var Labels = []string{"SONY_MUSIC", "ROADRUNNER_RECORDS", "BETTERNOISE_MUSIC", "UNIVERSAL_MUSIC"}

// Interpreten lists the permitted values of Song.Interpret.
var Interpreten = []string{"TRIVIUM", "FIVEFINGERDEATHPUNCH", "ZUGEZOGENMASKULIN", "DENDEMANN"}

// Song is the document stored in the song collection.
type Song struct {
	Titel             string   `json:"titel"`
	Label             string   `json:"label"`
	Produzent         string   `json:"produzent"`
	Interpret         string   `json:"interpret"`
	Lauflaenge        *float64 `json:"lauflaenge,omitempty"`
	Erscheinungsdatum string   `json:"erscheinungsdatum,omitempty"`
}

func (s Song) GetTitel() string { return s.Titel }

func (s Song) UniqueKeys() map[string]string { return nil }

// Validate implements Entity.
func (s Song) Validate() ValidationErrors {
	err := ValidationErrors{}

	switch {
	case s.Titel == "":
		err["titel"] = "Ein Song muss einen Titel haben."
	case !startsWithWordChar(s.Titel):
		err["titel"] = "Ein Songtitel muss mit einem Buchstaben, einer Ziffer oder _ beginnen."
	}

	switch {
	case s.Label == "":
		err["label"] = "Das Label eines Songs muss gesetzt sein."
	case !oneOf(s.Label, Labels):
		err["label"] = "Das Label eines Songs muss SONY_MUSIC, ROADRUNNER_RECORDS, BETTERNOISE_MUSIC oder UNIVERSAL_MUSIC sein."
	}

	switch {
	case s.Produzent == "":
		err["produzent"] = "Ein Song muss einen Produzenten haben."
	case !startsWithWordChar(s.Produzent):
		err["produzent"] = "Ein Produzent muss mit einem Buchstaben, einer Ziffer oder _ beginnen."
	}

	switch {
	case s.Interpret == "":
		err["interpret"] = "Der Interpret eines Songs muss gesetzt sein."
	case !oneOf(s.Interpret, Interpreten):
		err["interpret"] = "Der Interpret eines Songs muss TRIVIUM, FIVEFINGERDEATHPUNCH, ZUGEZOGENMASKULIN oder DENDEMANN sein."
	}

	if s.Erscheinungsdatum != "" && !isISODate(s.Erscheinungsdatum) {
		err["erscheinungsdatum"] = fmt.Sprintf("'%s' ist kein gueltiges Datum (yyyy-MM-dd).", s.Erscheinungsdatum)
	}

	return err.orNil()
}
