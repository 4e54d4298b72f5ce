package models

import "slices"

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	GenreIDs    []int   `json:"genre_ids,omitempty"`
	Genres      []Genre `json:"genres,omitempty"`
}

// CloneMovies returns a deep copy of movies. A nil input stays nil.
func CloneMovies(movies []Movie) []Movie {
	if movies == nil {
		return nil
	}
	out := make([]Movie, len(movies))
	for i, m := range movies {
		m.GenreIDs = slices.Clone(m.GenreIDs)
		m.Genres = slices.Clone(m.Genres)
		out[i] = m
	}
	return out
}
