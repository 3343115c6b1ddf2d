package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"flickfinder-backend/internal/models"
)

// MaxPage is the hard ceiling on page numbers, applied regardless of the
// total_pages value reported by the upstream API.
const MaxPage = 500

// ErrService is the uniform error surfaced for any catalog failure. Callers
// branch on this single sentinel; the concrete cause (timeout, upstream
// status, malformed body, missing credentials) is logged here with context.
var ErrService = errors.New("catalog service error")

// Client is the TMDB API client.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new TMDB API client.
func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ---- TMDB Response Types (internal, not exposed to consumers) ----

// pageResponse is the shared shape of discover/popular/search responses.
type pageResponse struct {
	Page         int            `json:"page"`
	Results      []MovieSummary `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// MovieSummary is a movie from TMDB list results. List endpoints carry genre
// IDs only; full genre pairs require a detail call.
type MovieSummary struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	GenreIDs    []int   `json:"genre_ids"`
}

// MovieDetail is the detailed movie info from TMDB.
type MovieDetail struct {
	ID          int            `json:"id"`
	Title       string         `json:"title"`
	Overview    string         `json:"overview"`
	ReleaseDate string         `json:"release_date"`
	PosterPath  string         `json:"poster_path"`
	VoteAverage float64        `json:"vote_average"`
	VoteCount   int            `json:"vote_count"`
	Genres      []models.Genre `json:"genres"`
}

// genreListResponse is the TMDB genre/movie/list response.
type genreListResponse struct {
	Genres []models.Genre `json:"genres"`
}

// ---- Client Methods ----

// Discover fetches one page of filtered discovery results. The returned page
// count is capped at MaxPage.
func (c *Client) Discover(ctx context.Context, filters *models.UserFilter, page int) ([]MovieSummary, int, error) {
	params := url.Values{}
	params.Set("sort_by", "popularity.desc")
	params.Set("page", strconv.Itoa(page))

	if filters != nil {
		if len(filters.GenreIDs) > 0 {
			ids := make([]string, len(filters.GenreIDs))
			for i, id := range filters.GenreIDs {
				ids[i] = strconv.Itoa(id)
			}
			params.Set("with_genres", strings.Join(ids, ","))
		}
		if filters.MinReleaseYear != nil {
			params.Set("primary_release_date.gte", fmt.Sprintf("%d-01-01", *filters.MinReleaseYear))
		}
		if filters.MaxReleaseYear != nil {
			params.Set("primary_release_date.lte", fmt.Sprintf("%d-12-31", *filters.MaxReleaseYear))
		}
		if filters.MinRating != nil {
			params.Set("vote_average.gte", strconv.FormatFloat(*filters.MinRating, 'f', -1, 64))
		}
	}

	return c.fetchPage(ctx, "discover/movie", params)
}

// Popular fetches one page of the popularity listing.
func (c *Client) Popular(ctx context.Context, page int) ([]MovieSummary, int, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	return c.fetchPage(ctx, "movie/popular", params)
}

// Search fetches one page of title search results.
func (c *Client) Search(ctx context.Context, query string, page int) ([]MovieSummary, int, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	return c.fetchPage(ctx, "search/movie", params)
}

// Details fetches full movie info by catalog ID. A movie the catalog no
// longer resolves yields (nil, nil) rather than an error.
func (c *Client) Details(ctx context.Context, tmdbID int) (*MovieDetail, error) {
	body, err := c.get(ctx, fmt.Sprintf("movie/%d", tmdbID), url.Values{})
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer body.Close()

	var detail MovieDetail
	if err := json.NewDecoder(body).Decode(&detail); err != nil {
		slog.Error("malformed TMDB detail response", "tmdb_id", tmdbID, "error", err)
		return nil, fmt.Errorf("%w: decode detail: %v", ErrService, err)
	}
	return &detail, nil
}

// Genres fetches the full movie genre list.
func (c *Client) Genres(ctx context.Context) ([]models.Genre, error) {
	body, err := c.get(ctx, "genre/movie/list", url.Values{})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var result genreListResponse
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		slog.Error("malformed TMDB genre response", "error", err)
		return nil, fmt.Errorf("%w: decode genres: %v", ErrService, err)
	}
	return result.Genres, nil
}

// ---- internals ----

// errNotFound marks an upstream 404. It never escapes the package; Details
// translates it into a nil result.
var errNotFound = errors.New("not found upstream")

func (c *Client) fetchPage(ctx context.Context, endpoint string, params url.Values) ([]MovieSummary, int, error) {
	body, err := c.get(ctx, endpoint, params)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, 0, fmt.Errorf("%w: %s returned 404", ErrService, endpoint)
		}
		return nil, 0, err
	}
	defer body.Close()

	var result pageResponse
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		slog.Error("malformed TMDB list response", "endpoint", endpoint, "error", err)
		return nil, 0, fmt.Errorf("%w: decode %s: %v", ErrService, endpoint, err)
	}

	totalPages := result.TotalPages
	if totalPages > MaxPage {
		totalPages = MaxPage
	}
	return result.Results, totalPages, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (io.ReadCloser, error) {
	if c.apiKey == "" {
		slog.Error("TMDB API key not configured")
		return nil, fmt.Errorf("%w: missing API key", ErrService)
	}

	params.Set("api_key", c.apiKey)
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrService, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			slog.Error("TMDB request timed out", "endpoint", endpoint)
			return nil, fmt.Errorf("%w: timeout on %s", ErrService, endpoint)
		}
		slog.Error("TMDB request failed", "endpoint", endpoint, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		slog.Error("TMDB returned error status",
			"endpoint", endpoint, "status", resp.StatusCode, "body", string(snippet))
		return nil, fmt.Errorf("%w: upstream status %d", ErrService, resp.StatusCode)
	}

	return resp.Body, nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
