package service

import (
	"flickfinder-backend/internal/models"
	"flickfinder-backend/internal/tmdb"
)

func posterURL(path string) string {
	if path == "" {
		return ""
	}
	return models.TMDBImageBaseW500 + path
}

func movieFromDetail(d *tmdb.MovieDetail) *models.Movie {
	return &models.Movie{
		TMDBId:      d.ID,
		Title:       d.Title,
		PosterPath:  d.PosterPath,
		Overview:    d.Overview,
		ReleaseDate: d.ReleaseDate,
		VoteAverage: d.VoteAverage,
		VoteCount:   d.VoteCount,
		Genres:      d.Genres,
	}
}

func detailResponseFromTMDB(d *tmdb.MovieDetail) *models.MovieDetail {
	genres := d.Genres
	if genres == nil {
		genres = []models.Genre{}
	}
	return &models.MovieDetail{
		TMDBId:      d.ID,
		Title:       d.Title,
		Overview:    d.Overview,
		ReleaseDate: d.ReleaseDate,
		VoteAverage: d.VoteAverage,
		VoteCount:   d.VoteCount,
		Genres:      genres,
		PosterURL:   posterURL(d.PosterPath),
	}
}

func detailResponse(m *models.Movie) *models.MovieDetail {
	genres := m.Genres
	if genres == nil {
		genres = []models.Genre{}
	}
	return &models.MovieDetail{
		TMDBId:      m.TMDBId,
		Title:       m.Title,
		Overview:    m.Overview,
		ReleaseDate: m.ReleaseDate,
		VoteAverage: m.VoteAverage,
		VoteCount:   m.VoteCount,
		Genres:      genres,
		PosterURL:   posterURL(m.PosterPath),
	}
}
