package tmdb

// TopRatedResponse is one page of the top-rated movie listing.
type TopRatedResponse struct {
	Page         int           `json:"page"`
	Results      []MovieResult `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

// MovieResult is one movie entry in a listing or search response.
type MovieResult struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Overview    string `json:"overview"`
	ReleaseDate string `json:"release_date"` // YYYY-MM-DD
	VoteCount   int    `json:"vote_count"`
}

// SearchMoviesResponse is the movie search payload.
type SearchMoviesResponse struct {
	Page         int           `json:"page"`
	Results      []MovieResult `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

// MovieDetails is the detail payload with external IDs appended.
type MovieDetails struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	ImdbID      string `json:"imdb_id"`
	ExternalIDs struct {
		ImdbID string `json:"imdb_id"`
	} `json:"external_ids"`
}

// CreditsResponse is the movie credits payload.
type CreditsResponse struct {
	ID   int          `json:"id"`
	Cast []CastMember `json:"cast"`
}

// CastMember is one cast credit.
type CastMember struct {
	ID        int    `json:"id"` // person ID
	Name      string `json:"name"`
	Character string `json:"character"`
	Order     int    `json:"order"`
}

// ReviewsResponse is the movie reviews payload.
type ReviewsResponse struct {
	Page    int      `json:"page"`
	Results []Review `json:"results"`
}

// Review is one user review.
type Review struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// PersonImagesResponse lists profile images for a person.
type PersonImagesResponse struct {
	ID       int            `json:"id"`
	Profiles []ProfileImage `json:"profiles"`
}

// ProfileImage is one profile image entry.
type ProfileImage struct {
	FilePath string `json:"file_path"`
}

// ErrorResponse is the TMDB API error payload.
type ErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

// ListedMovie is the normalized listing entry consumed by the enrichment
// core: identity fields only.
type ListedMovie struct {
	ID    int
	Title string
	Year  string
}

// TopRatedPage is a normalized page of the top-rated listing.
type TopRatedPage struct {
	Page       int
	TotalPages int
	Movies     []ListedMovie
}
