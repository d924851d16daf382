package materializer

// Curated priority lists for priority-first ranking (spec.md §4.4). These
// are well-known names scanned in order; library presence, not position in
// the underlying data, determines who gets a channel first.

var curatedDirectors = []string{
	"Steven Spielberg",
	"Martin Scorsese",
	"Christopher Nolan",
	"Quentin Tarantino",
	"James Cameron",
	"Ridley Scott",
	"Peter Jackson",
	"David Fincher",
	"Denis Villeneuve",
	"Alfred Hitchcock",
	"Stanley Kubrick",
	"George Lucas",
	"Tim Burton",
	"Guillermo del Toro",
	"Hayao Miyazaki",
}

var curatedActors = []string{
	"Tom Hanks",
	"Meryl Streep",
	"Denzel Washington",
	"Leonardo DiCaprio",
	"Robert De Niro",
	"Morgan Freeman",
	"Harrison Ford",
	"Brad Pitt",
	"Samuel L. Jackson",
	"Scarlett Johansson",
	"Will Smith",
	"Tom Cruise",
	"Johnny Depp",
	"Cate Blanchett",
	"Natalie Portman",
}

var curatedComposers = []string{
	"John Williams",
	"Hans Zimmer",
	"Ennio Morricone",
	"Howard Shore",
	"Alexandre Desplat",
	"James Newton Howard",
	"Danny Elfman",
	"Thomas Newman",
	"Michael Giacchino",
	"Alan Silvestri",
}
