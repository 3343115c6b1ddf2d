package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"flickfinder-backend/internal/config"
)

// NewPostgres creates a new PostgreSQL connection and runs migrations.
func NewPostgres(cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	slog.Info("connected to PostgreSQL", "db", cfg.DBName)

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(150) UNIQUE NOT NULL,
			email VARCHAR(254) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS genres (
			tmdb_id INTEGER PRIMARY KEY,
			name VARCHAR(100) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS movies (
			id SERIAL PRIMARY KEY,
			tmdb_id INTEGER UNIQUE NOT NULL,
			title VARCHAR(500) NOT NULL,
			poster_path VARCHAR(500) DEFAULT '',
			overview TEXT DEFAULT '',
			release_date VARCHAR(10) DEFAULT '',
			vote_average DOUBLE PRECISION DEFAULT 0,
			vote_count INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS movie_genres (
			movie_id INTEGER REFERENCES movies(id) ON DELETE CASCADE,
			genre_tmdb_id INTEGER NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (movie_id, genre_tmdb_id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_interactions (
			id SERIAL PRIMARY KEY,
			user_id INTEGER REFERENCES users(id) ON DELETE CASCADE,
			tmdb_id INTEGER NOT NULL,
			kind VARCHAR(10) NOT NULL,
			created_at TIMESTAMP DEFAULT NOW(),
			UNIQUE (user_id, tmdb_id, kind)
		)`,
		`CREATE TABLE IF NOT EXISTS user_filters (
			user_id INTEGER PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			genre_ids INTEGER[] DEFAULT '{}',
			min_release_year INTEGER,
			max_release_year INTEGER,
			min_rating DOUBLE PRECISION,
			updated_at TIMESTAMP DEFAULT NOW()
		)`,
		// Indexes for common query patterns
		`CREATE INDEX IF NOT EXISTS idx_movies_tmdb_id ON movies(tmdb_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_user ON user_interactions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_user_kind ON user_interactions(user_id, kind)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	slog.Info("database migrations completed")
	return nil
}
