package models

// Fixture is a seeded record with a fixed identifier.
type Fixture[T any] struct {
	ID   string
	Data T
}

func intPtr(i int) *int { return &i }
func floatPtr(f float64) *float64 { return &f }

// FilmFixtures is the test data loaded into an empty film collection.
var FilmFixtures = []Fixture[Film]{
	{
		ID:   "00000000-0000-0000-0000-000000000001",
		Data: Film{
			Titel: "Die nackte Kanone", Rating: intPtr(5), Art: "DVD", Studio: "ParamountPictures",
			Preis: 10.95, Rabatt: 0.7, Lieferbar: true, Datum: "1989-04-27", Isan: "3-89722-583-2",
			Regisseur: "David Zucker", Genre: []string{"COMEDY"},
			Darsteller: []Darsteller{{Nachname: "Nielsen", Vorname: "Leslie"}, {Nachname: "Simpson", Vorname: "O.J."}},
		},
	},
	{
		ID:   "00000000-0000-0000-0000-000000000002",
		Data: Film{
			Titel: "Im einem Land vor unserer Zeit", Rating: intPtr(4), Art: "VHS", Studio: "UniversalPictures",
			Preis: 5.49, Rabatt: 0.1, Lieferbar: true, Datum: "1989-06-22", Isan: "0-201-63361-2",
			Regisseur: "Don Bluth", Genre: []string{"ABENTEUER"},
			Darsteller: []Darsteller{{Nachname: "Foot", Vorname: "Little"}, {Nachname: "Zahn", Vorname: "Raff"}},
		},
	},
	{
		ID:   "00000000-0000-0000-0000-000000000003",
		Data: Film{
			Titel: "Der Pate", Rating: intPtr(3), Art: "VHS", Studio: "ParamountPictures",
			Preis: 7.95, Rabatt: 0.5, Lieferbar: true, Datum: "1972-03-02", Isan: "0-596-52068-9",
			Regisseur: "Francis Ford Coppola", Genre: []string{"DRAMA"},
			Darsteller: []Darsteller{{Nachname: "Brando", Vorname: "Marlon"}, {Nachname: "Pacino", Vorname: "Al"}},
		},
	},
	{
		ID:   "00000000-0000-0000-0000-000000000004",
		Data: Film{
			Titel: "Blood Diamond", Rating: intPtr(3), Art: "DVD", Studio: "WarnerBros",
			Preis: 5.1, Rabatt: 0.1, Lieferbar: true, Datum: "2007-01-25", Isan: "1-56619-909-3",
			Regisseur: "Edward Zwick", Genre: []string{"ACTION"},
			Darsteller: []Darsteller{{Nachname: "DiCaprio", Vorname: "Leonardo"}, {Nachname: "Hounsou", Vorname: "Djimon"}},
		},
	},
	{
		ID:   "00000000-0000-0000-0000-000000000005",
		Data: Film{
			Titel: "Inside Out", Rating: intPtr(2), Art: "BlueRay", Studio: "Pixar",
			Preis: 12.95, Rabatt: 0.08, Lieferbar: true, Datum: "2015-05-18", Isan: "0-306-40615-2",
			Regisseur: "Pete Docter", Genre: []string{"ANIMATION"},
			Darsteller: []Darsteller{{Nachname: "Poehler", Vorname: "Amy"}, {Nachname: "Smith", Vorname: "Phyllis"}},
		},
	},
}

// SongFixtures is the test data loaded into an empty song collection.
var SongFixtures = []Fixture[Song]{
	{
		ID:   "00000000-0000-0000-0000-000000000001",
		Data: Song{Titel: "Mood", Label: "SONY_MUSIC", Produzent: "John Williams", Interpret: "ZUGEZOGENMASKULIN",
			Lauflaenge: floatPtr(2.3), Erscheinungsdatum: "2020-02-01"},
	},
	{
		ID:   "00000000-0000-0000-0000-000000000002",
		Data: Song{Titel: "Positions", Label: "ROADRUNNER_RECORDS", Produzent: "Quincy Jones", Interpret: "ZUGEZOGENMASKULIN",
			Lauflaenge: floatPtr(3.02), Erscheinungsdatum: "2020-03-21"},
	},
	{
		ID:   "00000000-0000-0000-0000-000000000003",
		Data: Song{Titel: "Blinding Lights", Label: "SONY_MUSIC", Produzent: "George Martin", Interpret: "DENDEMANN",
			Lauflaenge: floatPtr(2.45), Erscheinungsdatum: "2020-10-10"},
	},
	{
		ID:   "00000000-0000-0000-0000-000000000004",
		Data: Song{Titel: "Kings & Queens", Label: "UNIVERSAL_MUSIC", Produzent: "Berry Gordy", Interpret: "FIVEFINGERDEATHPUNCH",
			Lauflaenge: floatPtr(3.15), Erscheinungsdatum: "2020-04-01"},
	},
	{
		ID:   "00000000-0000-0000-0000-000000000005",
		Data: Song{Titel: "Lonely", Label: "BETTERNOISE_MUSIC", Produzent: "Nile Rodgers", Interpret: "TRIVIUM",
			Lauflaenge: floatPtr(2.56), Erscheinungsdatum: "2020-07-21"},
	},
}
